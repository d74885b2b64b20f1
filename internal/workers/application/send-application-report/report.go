package sendapplicationreport

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"agritrust-workers/internal/models"
)

type report struct {
	GeneratedAt time.Time
	Filter      string
	Stats       *models.ApplicationStats
	Recent      []models.ApplicationRecord
}

func (r *report) subject() string {
	return fmt.Sprintf("AgriTrust application report %s: %d applications, %d approved",
		r.GeneratedAt.Format("2006-01-02"), r.Stats.Total, r.Stats.Approved)
}

func (r *report) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "AgriTrust application report, generated %s UTC\n\n", r.GeneratedAt.Format(models.TimestampLayout))
	fmt.Fprintf(&b, "Total applications: %d\n", r.Stats.Total)
	fmt.Fprintf(&b, "Approved: %d\n", r.Stats.Approved)
	fmt.Fprintf(&b, "Rejected: %d\n", r.Stats.Rejected)
	fmt.Fprintf(&b, "Average trust score: %.1f\n\n", r.Stats.AvgScore)

	b.WriteString("Risk distribution:\n")
	for _, c := range models.RiskCategories {
		fmt.Fprintf(&b, "  %-15s %d\n", c, r.Stats.Distribution[c])
	}

	fmt.Fprintf(&b, "\nMost recent applications (%s):\n", r.Filter)
	if len(r.Recent) == 0 {
		b.WriteString("  none\n")
	}
	for _, rec := range r.Recent {
		fmt.Fprintf(&b, "  #%d %s  %.1f  %s  %s\n",
			rec.ID, rec.ApplicantName, rec.TrustScore, rec.RiskCategory, rec.Timestamp.Format(models.TimestampLayout))
	}
	return b.String()
}

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"score": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"ts":    func(t time.Time) string { return t.UTC().Format(models.TimestampLayout) },
	"count": func(dist map[models.RiskCategory]int, c models.RiskCategory) int { return dist[c] },
}).Parse(`<html><body>
<h2>AgriTrust application report</h2>
<p>Generated {{ts .GeneratedAt}} UTC</p>
<table>
<tr><td>Total</td><td>{{.Stats.Total}}</td></tr>
<tr><td>Approved</td><td>{{.Stats.Approved}}</td></tr>
<tr><td>Rejected</td><td>{{.Stats.Rejected}}</td></tr>
<tr><td>Average trust score</td><td>{{score .Stats.AvgScore}}</td></tr>
</table>
<h3>Risk distribution</h3>
<ul>{{range $c := .Categories}}<li>{{$c}}: {{count $.Stats.Distribution $c}}</li>{{end}}</ul>
<h3>Most recent applications ({{.Filter}})</h3>
<table>
<tr><th>ID</th><th>Applicant</th><th>Score</th><th>Risk</th><th>Officer</th><th>Time</th></tr>
{{range .Recent}}<tr><td>{{.ID}}</td><td>{{.ApplicantName}}</td><td>{{score .TrustScore}}</td><td>{{.RiskCategory}}</td><td>{{.OfficerID}}</td><td>{{ts .Timestamp}}</td></tr>
{{end}}</table>
</body></html>`))

func (r *report) html() (string, error) {
	var buf bytes.Buffer
	err := htmlReport.Execute(&buf, map[string]interface{}{
		"GeneratedAt": r.GeneratedAt,
		"Filter":      r.Filter,
		"Stats":       r.Stats,
		"Recent":      r.Recent,
		"Categories":  models.RiskCategories,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
