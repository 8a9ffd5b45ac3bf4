// Package tools declares the gateway's tool surface: one descriptor per
// tool with its argument schema as data, bound to an adapter capability.
// Names are stable and versioned by major number only.
package tools

import (
	"time"

	"github.com/adliye/lexgate/health"
	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/toolkit"
	"github.com/adliye/lexgate/sources"
)

// browserTimeout covers the tools that may drive the headless browser; a
// cold Chrome start plus the WebForms postbacks does not fit the default.
const browserTimeout = 120 * time.Second

// Catalog builds descriptors over a frozen adapter set.
type Catalog struct {
	set    *sources.Set
	prober *health.Prober
}

// New constructs the catalog.
func New(set *sources.Set, prober *health.Prober) *Catalog {
	return &Catalog{set: set, prober: prober}
}

// Descriptors returns the full tool surface. Order is presentation order;
// the registry re-sorts by name.
func (c *Catalog) Descriptors() []toolkit.Descriptor {
	ro := toolkit.ReadOnlyIdempotent()
	ds := []toolkit.Descriptor{
		{
			Name:        "search_yargitay_detailed",
			Description: "Search Yargıtay (Court of Cassation) decisions by phrase, chamber, case/decision number and date range.",
			ArgsSchema: schema(pagingProps(dateProps(caseNumberProps(map[string]any{
				"phrase":  str("Free-text query; +term, -term, \"exact\", AND/OR/NOT supported."),
				"chamber": chamberEnum("Chamber code; ALL for no filter."),
			})))),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.searchHandler(legal.SourceYargitay, ""),
		},
		{
			Name:        "search_danistay_keyword",
			Description: "Search Danıştay (Council of State) decisions by keyword.",
			ArgsSchema: schema(pagingProps(map[string]any{
				"phrase": strMin("Keyword query.", 1),
			}), "phrase"),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.searchHandler(legal.SourceDanistay, legal.SubtypeKeyword),
		},
		{
			Name:        "search_danistay_detailed",
			Description: "Search Danıştay decisions with structured filters: chamber, case/decision numbers, dates, legislation.",
			ArgsSchema: schema(pagingProps(dateProps(caseNumberProps(map[string]any{
				"phrase":  str("Free-text query."),
				"chamber": chamberEnum("Chamber code; ALL for no filter."),
				"subject": str("Legislation (mevzuat) filter."),
			})))),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.searchHandler(legal.SourceDanistay, legal.SubtypeDetailed),
		},
		{
			Name:        "search_emsal_detailed_decisions",
			Description: "Search the UYAP Emsal precedent index of first-instance and appellate decisions.",
			ArgsSchema: schema(pagingProps(dateProps(caseNumberProps(map[string]any{
				"phrase":  str("Free-text query."),
				"chamber": chamberEnum("Chamber code; ALL for no filter."),
			})))),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.searchHandler(legal.SourceEmsal, ""),
		},
		{
			Name:        "search_uyusmazlik_decisions",
			Description: "Search the Court of Jurisdictional Disputes (Uyuşmazlık Mahkemesi) decision bank.",
			ArgsSchema: schema(pagingProps(dateProps(caseNumberProps(map[string]any{
				"phrase":  str("Free-text query."),
				"subject": str("Section (bölüm) code."),
			})))),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.searchHandler(legal.SourceUyusmazlik, ""),
		},
		{
			Name:        "search_rekabet_kurumu_decisions",
			Description: "Search Competition Authority (Rekabet Kurumu) board decisions.",
			ArgsSchema: schema(pagingProps(dateProps(map[string]any{
				"phrase":        str("Free-text query."),
				"decision_type": strEnum("Decision kind.", "ihlal", "birlesme", "muafiyet"),
				"decision_year": intMin("Decision year.", 1900),
				"decision_seq":  intMin("Decision sequence number.", 1),
			}))),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.searchHandler(legal.SourceRekabet, ""),
		},
		{
			Name:        "search_anayasa_unified",
			Description: "Search Constitutional Court decisions: norm review or individual applications.",
			ArgsSchema: schema(dateProps(map[string]any{
				"decision_type":    strEnum("Decision stream.", "norm_denetimi", "bireysel_basvuru"),
				"keywords":         strArray("Keywords, ANDed together.", strMin("", 1)),
				"application_year": intMin("Application (başvuru) year.", 1900),
				"application_no":   intMin("Application sequence number.", 1),
				"page_to_fetch":    intMin("1-based page number.", 1),
				"page_size":        intRange("Results per page.", 1, legal.MaxPageSize),
			}), "decision_type"),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.anayasaHandler(),
		},
		{
			Name:        "search_unified_sayistay",
			Description: "Search Court of Accounts (Sayıştay) decisions across the general assembly, appeals board and chamber banks.",
			ArgsSchema: schema(dateProps(map[string]any{
				"decision_type": strEnum("Decision bank.", "genel_kurul", "temyiz_kurulu", "daire"),
				"phrase":        str("Free-text query."),
				"karar_no":      map[string]any{"type": "string", "pattern": `^\d+(/\d+)?$`, "description": "Decision number, N or YYYY/N."},
				"karar_yil":     intMin("Decision year.", 1900),
				"daire":         str("Chamber number for the chamber bank."),
				"start":         intMin("0-based record offset; must be a multiple of length.", 0),
				"length":        intRange("Records per page.", 1, legal.MaxPageSize),
			}), "decision_type"),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.sayistayHandler(),
		},
		{
			Name:        "search_kik_v2",
			Description: "Search Public Procurement Authority (KİK) board decisions through the v2 JSON API.",
			ArgsSchema: schema(pagingProps(dateProps(map[string]any{
				"decision_type": strEnum("Board: dk disputes, rk regulatory, mk court.", "dk", "rk", "mk"),
				"phrase":        str("Free-text query."),
				"decision_year": intMin("Decision year.", 1900),
				"decision_seq":  intMin("Decision sequence number.", 1),
			})), "decision_type"),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.searchHandler(legal.SourceKIK, ""),
		},
		{
			Name:        "search_kik_decisions",
			Description: "Search KİK board decisions through the legacy browser-driven flow covering the corpus not yet migrated to v2.",
			ArgsSchema: schema(pagingProps(map[string]any{
				"decision_type": strEnum("Board: dk disputes, rk regulatory, mk court.", "dk", "rk", "mk"),
				"phrase":        str("Free-text query."),
				"decision_year": intMin("Decision year.", 1900),
				"decision_seq":  intMin("Decision sequence number.", 1),
			})),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Timeout:      browserTimeout,
			Handler:      c.kikLegacyHandler(),
		},
		{
			Name:        "search_bddk_decisions",
			Description: "Search banking regulator (BDDK) board decisions via domain-scoped web search.",
			ArgsSchema: schema(pagingProps(map[string]any{
				"phrase": strMin("Free-text query.", 1),
			}), "phrase"),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.searchHandler(legal.SourceBDDK, ""),
		},
		{
			Name:        "search_kvkk_decisions",
			Description: "Search data protection authority (KVKK) decision summaries via domain-scoped web search.",
			ArgsSchema: schema(pagingProps(map[string]any{
				"phrase": strMin("Free-text query.", 1),
			}), "phrase"),
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.searchHandler(legal.SourceKVKK, ""),
		},
	}

	bedestenSchema := schema(dateProps(map[string]any{
		"phrase":      strMin("Free-text query; exact phrases in quotes.", 1),
		"court_types": strArray("Restrict to court corpora.", strEnum("", "YARGITAYKARARI", "DANISTAYKARAR", "YERELHUKUK", "ISTINAFHUKUK", "KYB")),
		"birim_adi":   str("Chamber/unit name filter."),
		"pageNumber":  intMin("1-based page number.", 1),
		"pageSize":    intRange("Results per page.", 1, legal.MaxPageSize),
	}), "phrase")
	ds = append(ds,
		toolkit.Descriptor{
			Name:         "search_bedesten_unified",
			Description:  "Search the Ministry of Justice federated index across Yargıtay, Danıştay, local and appellate courts.",
			ArgsSchema:   bedestenSchema,
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.bedestenHandler(),
		},
		toolkit.Descriptor{
			Name:         "search_unified",
			Description:  "Federated search over every indexed court; alias surface over the bedesten index for clients that cannot enumerate backends.",
			ArgsSchema:   bedestenSchema,
			ResultSchema: searchResultSchema,
			Annotations:  ro,
			Handler:      c.bedestenHandler(),
		},
	)

	for _, f := range []struct {
		source legal.SourceID
		name   string
		court  string
	}{
		{legal.SourceYargitay, "get_yargitay_document", "Yargıtay"},
		{legal.SourceDanistay, "get_danistay_document", "Danıştay"},
		{legal.SourceEmsal, "get_emsal_document", "UYAP Emsal"},
		{legal.SourceUyusmazlik, "get_uyusmazlik_document", "Uyuşmazlık Mahkemesi"},
		{legal.SourceAnayasa, "get_anayasa_document", "Constitutional Court"},
		{legal.SourceKIK, "get_kik_document", "KİK"},
		{legal.SourceRekabet, "get_rekabet_document", "Rekabet Kurumu"},
		{legal.SourceSayistay, "get_sayistay_document", "Sayıştay"},
		{legal.SourceBDDK, "get_bddk_document", "BDDK"},
		{legal.SourceKVKK, "get_kvkk_document", "KVKK"},
		{legal.SourceBedesten, "get_bedesten_document", "federated index"},
	} {
		d := toolkit.Descriptor{
			Name:         f.name,
			Description:  "Fetch one " + f.court + " decision as paginated Markdown.",
			ArgsSchema:   fetchArgsSchema,
			ResultSchema: documentResultSchema,
			Annotations:  ro,
			Handler:      c.fetchHandler(f.source),
		}
		if f.source == legal.SourceKIK {
			d.Timeout = browserTimeout
		}
		ds = append(ds, d)
	}

	ds = append(ds,
		toolkit.Descriptor{
			Name:         "get_document_unified",
			Description:  "Fetch any decision by its opaque handle; the handle routes to the owning backend.",
			ArgsSchema:   fetchArgsSchema,
			ResultSchema: documentResultSchema,
			Annotations:  ro,
			Timeout:      browserTimeout,
			Handler:      c.fetchHandler(""),
		},
		toolkit.Descriptor{
			Name:         "fetch_unified",
			Description:  "Alias of get_document_unified.",
			ArgsSchema:   fetchArgsSchema,
			ResultSchema: documentResultSchema,
			Annotations:  ro,
			Timeout:      browserTimeout,
			Handler:      c.fetchHandler(""),
		},
		toolkit.Descriptor{
			Name:         "health",
			Description:  "Probe every enabled backend with a trivial query and report per-backend and aggregate status.",
			ArgsSchema:   schema(map[string]any{}),
			ResultSchema: healthResultSchema,
			Annotations:  ro,
			Timeout:      browserTimeout,
			Handler:      c.healthHandler(),
		},
	)
	return ds
}
