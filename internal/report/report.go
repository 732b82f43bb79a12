package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	texttemplate "text/template"
	"time"

	"github.com/FranksOps/sift/internal/storage"
)

// Summary contains aggregated figures over a set of archived searches.
type Summary struct {
	TotalSearches int            `json:"total_searches"`
	TotalPages    int            `json:"total_pages"`
	FailedPages   int            `json:"failed_pages"`
	BlockedPages  int            `json:"blocked_pages"`
	TotalMatches  int            `json:"total_matches"`
	ByCategory    map[string]int `json:"by_category"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
	// AvgDuration is the mean wall time of one search.
	AvgDuration time.Duration `json:"avg_duration"`
}

// FailureRate is the share of fetched pages that failed, between 0 and 1.
func (s Summary) FailureRate() float64 {
	if s.TotalPages == 0 {
		return 0
	}
	return float64(s.FailedPages) / float64(s.TotalPages)
}

// GenerateSummary processes archived searches to generate summary figures.
func GenerateSummary(records []*storage.SearchRecord) Summary {
	s := Summary{
		ByCategory: make(map[string]int),
	}

	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt

	var total time.Duration
	for _, r := range records {
		s.TotalSearches++
		s.TotalPages += r.Pages
		s.FailedPages += r.Failed
		s.BlockedPages += r.Blocked
		s.TotalMatches += len(r.Records)
		s.ByCategory[r.Category]++
		total += r.Duration

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.AvgDuration = total / time.Duration(s.TotalSearches)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

const textTmpl = `Sift Search Summary
-------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Searches:      {{.TotalSearches}}
Avg Duration:  {{.AvgDuration}}
Pages:         {{.TotalPages}}
Failed Pages:  {{.FailedPages}} ({{printf "%.1f" (pct .)}}%)
Blocked Pages: {{.BlockedPages}}
Matches:       {{.TotalMatches}}

By Category:
{{- range $cat, $count := .ByCategory}}
  {{$cat}}: {{$count}}
{{- else}}
  None
{{- end}}
`

var funcs = map[string]any{
	"pct": func(s Summary) float64 { return s.FailureRate() * 100 },
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	t, err := texttemplate.New("textReport").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}

	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Sift Search Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Sift Search Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}}</p>

  <div class="stat-card">
    <div>Searches</div>
    <div class="stat-val">{{.TotalSearches}}</div>
  </div>
  <div class="stat-card">
    <div>Pages</div>
    <div class="stat-val">{{.TotalPages}}</div>
  </div>
  <div class="stat-card">
    <div>Failed Pages</div>
    <div class="stat-val" style="color: {{if gt .FailedPages 0}}red{{else}}green{{end}};">{{.FailedPages}}</div>
  </div>
  <div class="stat-card">
    <div>Blocked Pages</div>
    <div class="stat-val">{{.BlockedPages}}</div>
  </div>
  <div class="stat-card">
    <div>Matches</div>
    <div class="stat-val">{{.TotalMatches}}</div>
  </div>

  <h3>Searches By Category</h3>
  <table>
    <tr><th>Category</th><th>Count</th></tr>
    {{- range $cat, $count := .ByCategory}}
    <tr><td>{{$cat}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	t, err := template.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse html template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	return nil
}

const matchesTmpl = `{{.Title | printf "%q"}} in {{.Category}}: {{len .Records}} matches, {{.Pages}} pages ({{.Failed}} failed, {{.Blocked}} blocked) in {{.Duration}}
{{- range .Records}}
  {{.Title}}
    {{.Link}}
{{- end}}
`

// WriteMatches writes one search and its matching records as plain text.
func WriteMatches(w io.Writer, record *storage.SearchRecord) error {
	t, err := texttemplate.New("matches").Parse(matchesTmpl)
	if err != nil {
		return fmt.Errorf("parse matches template: %w", err)
	}

	if err := t.Execute(w, record); err != nil {
		return fmt.Errorf("render matches: %w", err)
	}

	return nil
}
