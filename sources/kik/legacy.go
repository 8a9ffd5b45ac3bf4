package kik

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/browser"
)

// Selectors on the legacy WebForms search page. The page renders its result
// grid client-side, which is why this flow runs in the browser pool.
const (
	selPhrase     = "#ctl00_ContentPlaceHolder1_txtAranacakKelime"
	selDecisionNo = "#ctl00_ContentPlaceHolder1_txtKararNo"
	selBoardGroup = "#ctl00_ContentPlaceHolder1_rblKararTipi"
	selSubmit     = "#ctl00_ContentPlaceHolder1_btnAra"
	selGrid       = "#ctl00_ContentPlaceHolder1_grdKurulKararlari"
	selPreview    = "a.karar-onizleme"
	selIframe     = "#ifrKararGoster"
)

// SearchLegacy drives the legacy search form through the browser pool and
// parses the rendered result grid. It serves the callers that need the
// legacy corpus not yet migrated to the v2 API.
func (a *Adapter) SearchLegacy(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	board, ok := boards[q.Subtype]
	if !ok {
		return nil, legal.Invalidf("subtype", "kik has no board %q", q.Subtype)
	}
	if err := q.Validate(maxOffset); err != nil {
		return nil, err
	}
	if a.browsers == nil {
		return nil, legal.BackendFailuref(0, "", "kik legacy search requires the browser pool")
	}

	plan := browser.Plan{
		{Selector: boardSelector(board), Action: browser.ActionClick},
	}
	if q.Phrase != "" {
		plan = append(plan, browser.Step{Selector: selPhrase, Action: browser.ActionFill, Value: q.Phrase})
	}
	if no := legal.CaseNumber(q.DecisionYear, q.DecisionSeq); no != "" {
		plan = append(plan, browser.Step{Selector: selDecisionNo, Action: browser.ActionFill, Value: no})
	}
	plan = append(plan,
		browser.Step{Selector: selSubmit, Action: browser.ActionClick},
		browser.Step{Selector: selGrid + " tr", Action: browser.ActionWaitVisible},
	)

	html, err := a.browsers.FillAndSubmit(ctx, a.baseURL+legacySearchPage, plan,
		browser.WaitCondition{Selector: selGrid})
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceKIK, "search")
	}
	return a.parseLegacyGrid(html, q)
}

func boardSelector(board string) string {
	return selBoardGroup + ` input[value="` + board + `"]`
}

// parseLegacyGrid maps the rendered grid rows to canonical entries. Cell
// order: decision number, decision date, applicant, subject.
func (a *Adapter) parseLegacyGrid(html string, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, legal.ParseFailuref("html_page", err, "kik legacy results are not parseable HTML")
	}

	page := &legal.SearchResultPage{
		Source:    legal.SourceKIK,
		Subtype:   q.Subtype,
		PageIndex: q.PageIndex,
		PageSize:  q.PageSize,
	}
	doc.Find(selGrid + " tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td").Map(func(_ int, c *goquery.Selection) string {
			return strings.TrimSpace(c.Text())
		})
		if len(cells) < 2 || cells[0] == "" {
			return
		}
		e := legal.Entry{
			Handle: legal.DocumentHandle{
				Source:   legal.SourceKIK,
				Subtype:  q.Subtype,
				NativeID: EncodeKey(q.Subtype, cells[0]),
			},
			Title:        "Kurul Kararı " + cells[0],
			DecisionNo:   cells[0],
			DecisionDate: legal.NormalizeBackendDate(cells[1]),
		}
		if len(cells) > 2 {
			e.Applicant = cells[2]
		}
		if len(cells) > 3 {
			e.Subject = cells[3]
		}
		page.Entries = append(page.Entries, e)
	})
	return page, nil
}

// locateLegacyDocument re-drives the search UI for one decision number,
// triggers the preview postback and returns the iframe URL the page loads
// the decision body into. The iframe URL itself is fetched over plain HTTP.
func (a *Adapter) locateLegacyDocument(ctx context.Context, subtype legal.Subtype, decisionNo string) (string, error) {
	board := boards[subtype]
	plan := browser.Plan{
		{Selector: boardSelector(board), Action: browser.ActionClick},
		{Selector: selDecisionNo, Action: browser.ActionFill, Value: decisionNo},
		{Selector: selSubmit, Action: browser.ActionClick},
		{Selector: selGrid + " tr", Action: browser.ActionWaitVisible},
		{Selector: selPreview, Action: browser.ActionClick},
		{Selector: selIframe, Action: browser.ActionWaitVisible},
	}
	html, err := a.browsers.FillAndSubmit(ctx, a.baseURL+legacySearchPage, plan,
		browser.WaitCondition{Selector: selIframe})
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		return "", legal.ParseFailuref("html_page", err, "kik preview page is not parseable HTML")
	}
	src, ok := doc.Find(selIframe).First().Attr("src")
	if !ok || src == "" {
		return "", legal.NotFoundf("kik preview opened no document frame for %s", decisionNo)
	}
	if strings.HasPrefix(src, "/") {
		src = a.baseURL + src
	}
	return src, nil
}
