// Package legal defines the canonical data model shared by every backend
// adapter: search queries, result pages, document handles, chamber code
// tables, wire date encodings and the classified fault taxonomy.
package legal

type (
	// SourceID identifies a registered backend database.
	SourceID string

	// Subtype identifies a decision kind within a backend. The empty
	// subtype is valid for backends that expose a single decision stream.
	Subtype string

	// SearchQuery is the stable, typed search contract translated by each
	// adapter into the backend's private request shape. The phrase is
	// forwarded verbatim; operator support is the backend's concern.
	SearchQuery struct {
		// Source selects the target backend.
		Source SourceID
		// Subtype selects the decision kind where the backend has several.
		Subtype Subtype
		// Phrase is the free-text query. Supports +term, -term, "exact",
		// AND/OR/NOT on backends that honor them.
		Phrase string
		// DateStart and DateEnd bound the decision date as an inclusive
		// range. ISO YYYY-MM-DD, empty when unbounded.
		DateStart string
		DateEnd   string
		// Chamber is a canonical chamber code from the closed set, or
		// ChamberAll for no filter.
		Chamber ChamberCode
		// CaseYear and CaseSeq form the case-number tuple (esas).
		CaseYear int
		CaseSeq  int
		// DecisionYear and DecisionSeq form the decision-number tuple (karar).
		DecisionYear int
		DecisionSeq  int
		// Subject is a backend-specific subject-category code.
		Subject string
		// CourtTypes restricts federated searches to the named court
		// corpora. Only the bedesten backend honors it.
		CourtTypes []string
		// PageIndex is 1-based.
		PageIndex int
		// PageSize is in [1,100].
		PageSize int
	}

	// Entry is a single search hit in canonical shape.
	Entry struct {
		// Handle re-fetches the decision without re-running the search.
		Handle DocumentHandle `json:"handle"`
		// Title is assembled from chamber, case number, decision number and
		// date, whichever the backend exposed.
		Title string `json:"title"`
		// Chamber is the backend's chamber or board label, display only.
		Chamber string `json:"chamber,omitempty"`
		// CaseNo and DecisionNo carry the backend's native numbering.
		CaseNo     string `json:"case_no,omitempty"`
		DecisionNo string `json:"decision_no,omitempty"`
		// DecisionDate is ISO YYYY-MM-DD when the backend exposed it.
		DecisionDate string `json:"decision_date,omitempty"`
		// Court names the deciding court for federated results.
		Court string `json:"court,omitempty"`
		// Applicant, Subject and Outcome are display-only metadata.
		Applicant string `json:"applicant,omitempty"`
		Subject   string `json:"subject,omitempty"`
		Outcome   string `json:"outcome,omitempty"`
	}

	// SearchResultPage is one page of canonical search results.
	SearchResultPage struct {
		Source  SourceID `json:"source_id"`
		Subtype Subtype  `json:"subtype,omitempty"`
		// TotalRecords is nil when the backend does not expose a count.
		TotalRecords *int64  `json:"total_records"`
		PageIndex    int     `json:"page_index"`
		PageSize     int     `json:"page_size"`
		Entries      []Entry `json:"entries"`
	}

	// NormalizedDocument is a chunked Markdown rendition of a decision.
	NormalizedDocument struct {
		Handle    DocumentHandle `json:"handle"`
		SourceURL string         `json:"source_url"`
		// ChunkIndex is the clamped, 1-based index actually returned.
		ChunkIndex  int    `json:"chunk_index"`
		TotalChunks int    `json:"total_chunks"`
		ChunkText   string `json:"chunk_text"`
		IsPaginated bool   `json:"is_paginated"`
		// FullCharCount is the rune length of the full Markdown document.
		FullCharCount int `json:"full_char_count,omitempty"`
	}

	// HealthStatus classifies a backend probe result.
	HealthStatus string

	// HealthSample is one backend's probe outcome.
	HealthSample struct {
		Source    SourceID     `json:"source_id"`
		Status    HealthStatus `json:"status"`
		LatencyMS int64        `json:"latency_ms"`
		Reason    string       `json:"reason,omitempty"`
	}
)

// Registered backends.
const (
	SourceYargitay   SourceID = "yargitay"
	SourceDanistay   SourceID = "danistay"
	SourceEmsal      SourceID = "emsal"
	SourceUyusmazlik SourceID = "uyusmazlik"
	SourceAnayasa    SourceID = "anayasa"
	SourceKIK        SourceID = "kik"
	SourceRekabet    SourceID = "rekabet"
	SourceSayistay   SourceID = "sayistay"
	SourceBDDK       SourceID = "bddk"
	SourceKVKK       SourceID = "kvkk"
	SourceBedesten   SourceID = "bedesten"
)

// Decision subtypes per backend.
const (
	// Anayasa Mahkemesi.
	SubtypeNormDenetimi    Subtype = "norm_denetimi"
	SubtypeBireyselBasvuru Subtype = "bireysel_basvuru"
	// Sayıştay.
	SubtypeGenelKurul   Subtype = "genel_kurul"
	SubtypeTemyizKurulu Subtype = "temyiz_kurulu"
	SubtypeDaire        Subtype = "daire"
	// KİK boards.
	SubtypeKIKUyusmazlik  Subtype = "dk"
	SubtypeKIKDuzenleyici Subtype = "rk"
	SubtypeKIKMahkeme     Subtype = "mk"
	// Danıştay search modes.
	SubtypeKeyword  Subtype = "keyword"
	SubtypeDetailed Subtype = "detailed"
	// Rekabet Kurumu decision kinds.
	SubtypeRekabetIhlal    Subtype = "ihlal"
	SubtypeRekabetBirlesme Subtype = "birlesme"
	SubtypeRekabetMuafiyet Subtype = "muafiyet"
)

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// MaxPageSize bounds PageSize for every backend.
const MaxPageSize = 100

// DefaultMaxOffset caps page_index*page_size for backends that do not
// declare a tighter limit.
const DefaultMaxOffset = 10000

// Validate checks the query invariants that hold for every backend:
// pagination bounds, offset ceiling and the phrase-or-filter rule. It
// returns an InvalidArgument fault before any network activity.
func (q SearchQuery) Validate(maxOffset int) error {
	if q.PageIndex < 1 {
		return Invalidf("page_index", "page_index must be >= 1, got %d", q.PageIndex)
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return Invalidf("page_size", "page_size must be in [1,%d], got %d", MaxPageSize, q.PageSize)
	}
	if maxOffset <= 0 {
		maxOffset = DefaultMaxOffset
	}
	if q.PageIndex*q.PageSize > maxOffset {
		return Invalidf("page_index", "page_index*page_size exceeds backend maximum offset %d", maxOffset)
	}
	if q.Phrase == "" && !q.HasFilter() {
		return Invalidf("phrase", "an empty phrase requires at least one structured filter")
	}
	return nil
}

// HasFilter reports whether any structured filter is set.
func (q SearchQuery) HasFilter() bool {
	return q.DateStart != "" || q.DateEnd != "" ||
		(q.Chamber != "" && q.Chamber != ChamberAll) ||
		q.CaseYear != 0 || q.CaseSeq != 0 ||
		q.DecisionYear != 0 || q.DecisionSeq != 0 ||
		q.Subject != "" || len(q.CourtTypes) > 0
}

// Offset returns the 0-based record offset of the requested page.
func (q SearchQuery) Offset() int {
	return (q.PageIndex - 1) * q.PageSize
}
