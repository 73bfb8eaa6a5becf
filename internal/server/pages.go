package server

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sw33tLie/taxscope/internal/utils"
	"github.com/sw33tLie/taxscope/pkg/scheduler"
	"github.com/sw33tLie/taxscope/pkg/snapshot"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

const pageStyle = `
body { font-family: system-ui, sans-serif; background: #0f172a; color: #e2e8f0; margin: 0; }
main { max-width: 960px; margin: 2.5rem auto; padding: 0 1rem; }
section { background: #1e293b; border-radius: 12px; padding: 1.25rem 1.5rem; margin-bottom: 1.5rem; }
table { width: 100%; border-collapse: collapse; font-size: 0.9rem; }
th { text-align: left; color: #94a3b8; text-transform: uppercase; font-size: 0.75rem; padding: 0.5rem; }
td { padding: 0.5rem; border-top: 1px solid #334155; }
a { color: #22d3ee; }
.ok { color: #4ade80; } .fail { color: #f87171; } .muted { color: #94a3b8; }
`

func pageLayout(title string, content g.Node) g.Node {
	return g.Group([]g.Node{
		g.Raw("<!DOCTYPE html>"),
		HTML(Lang("en"),
			Head(
				Meta(Charset("UTF-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1.0")),
				TitleEl(g.Text(title)),
				StyleEl(g.Raw(pageStyle)),
			),
			Body(content),
		),
	})
}

func stateClass(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func schedulerSection(st *scheduler.Status) g.Node {
	if st == nil {
		return Section(H2(g.Text("Scheduler")), P(Class("muted"), g.Text("No scheduler is running in this process.")))
	}

	row := func(label string, value g.Node) g.Node {
		return Tr(Td(Class("muted"), g.Text(label)), Td(value))
	}
	when := func(t time.Time) g.Node {
		if t.IsZero() {
			return g.Text("never")
		}
		return g.Textf("%s (%s)", t.UTC().Format(time.RFC3339), humanize.Time(t))
	}

	lastErr := g.Node(g.Text("none"))
	if st.LastError != "" {
		lastErr = Span(Class("fail"), g.Text(st.LastError))
	}

	return Section(
		H2(g.Text("Scheduler")),
		Table(TBody(
			row("State", Span(Class(stateClass(st.State == scheduler.Idle)), g.Text(string(st.State)))),
			row("Last start", when(st.LastStart)),
			row("Last duration", g.Text(st.LastDuration.Round(time.Millisecond).String())),
			row("Last error", lastErr),
			row("Cycles", g.Textf("%d (%d failed, %d skipped)", st.Cycles, st.Failures, st.Skipped)),
			row("Next run", when(st.NextRun)),
		)),
	)
}

func snapshotSection(snap snapshot.Snapshot, loadErr error) g.Node {
	switch {
	case errors.Is(loadErr, snapshot.ErrNotFound):
		return Section(H2(g.Text("Snapshot")), P(Class("muted"), g.Text("No snapshot yet, the first refresh is still running.")))
	case loadErr != nil:
		return Section(H2(g.Text("Snapshot")), P(Class("fail"), g.Text(loadErr.Error())))
	}

	ids := make([]string, 0, len(snap.ScrapeResults))
	for id := range snap.ScrapeResults {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var rows []g.Node
	for _, id := range ids {
		o := snap.ScrapeResults[id]
		detail := o.PageTitle
		if !o.Success {
			detail = o.Error
		}
		code := ""
		if o.StatusCode != 0 {
			code = fmt.Sprint(o.StatusCode)
		}
		rows = append(rows, Tr(
			Td(g.Text(id)),
			Td(A(Href(o.Source.URL), g.Text(o.Source.Domain()))),
			Td(Class(stateClass(o.Success)), g.Text(resultLabel(o.Success))),
			Td(g.Text(code)),
			Td(g.Text(detail)),
		))
	}

	return Section(
		H2(g.Text("Snapshot")),
		P(
			g.Textf("Updated %s (%s), refreshed every %s. ", humanize.Time(snap.LastUpdate), snap.LastUpdate.Format(time.RFC3339), snap.UpdateFrequency),
			g.Textf("%d jurisdictions. ", len(snap.Jurisdictions)),
			A(Href("/tax-data.json"), g.Text("Raw data")),
		),
		Table(
			THead(Tr(Th(g.Text("Source")), Th(g.Text("Domain")), Th(g.Text("Result")), Th(g.Text("HTTP")), Th(g.Text("Title / error")))),
			TBody(rows...),
		),
	)
}

func ratesSection(snap snapshot.Snapshot) g.Node {
	ids := make([]string, 0, len(snap.Jurisdictions))
	for id := range snap.Jurisdictions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var rows []g.Node
	for _, id := range ids {
		r := snap.Jurisdictions[id]
		rows = append(rows, Tr(
			Td(g.Textf("%s, %s", r.City, r.Country)),
			Td(g.Text(utils.HumanPercent(r.CorporateTax.Standard))),
			Td(g.Text(utils.HumanPercent(r.VAT.Standard))),
			Td(g.Text(utils.HumanPercent(r.CapitalGainsTax))),
			Td(g.Text(utils.HumanPercent(r.DividendTax))),
			Td(Class("muted"), g.Text(r.VerifiedDate)),
		))
	}
	return Section(
		H2(g.Text("Rates")),
		Table(
			THead(Tr(Th(g.Text("Jurisdiction")), Th(g.Text("Corporate")), Th(g.Text("VAT")), Th(g.Text("Capital gains")), Th(g.Text("Dividends")), Th(g.Text("Verified")))),
			TBody(rows...),
		),
	)
}

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	var st *scheduler.Status
	if s.Scheduler != nil {
		v := s.Scheduler.Status()
		st = &v
	}
	snap, err := s.Store.Load()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	pageLayout("Status - taxscope", Main(
		H1(g.Text("taxscope status")),
		schedulerSection(st),
		snapshotSection(snap, err),
		g.If(err == nil, ratesSection(snap)),
	)).Render(w)
}

func (s *Server) handleIndexPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	pageLayout("taxscope", Main(
		H1(g.Text("taxscope")),
		Section(
			P(g.Text("Corporate tax, VAT, capital gains and dividend rates for startup-friendly cities.")),
			Ul(
				Li(A(Href("/tax-data.json"), g.Text("/tax-data.json")), g.Text(" latest snapshot")),
				Li(A(Href("/api/v1/metrics"), g.Text("/api/v1/metrics")), g.Text(" chart series")),
				Li(A(Href("/api/v1/burden?profit=100000"), g.Text("/api/v1/burden?profit=100000")), g.Text(" burden comparison")),
				Li(A(Href("/status"), g.Text("/status")), g.Text(" refresh status")),
			),
		),
	)).Render(w)
}
