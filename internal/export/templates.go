package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"taxportal/api/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/report.html")
	if err != nil {
		// Fallback to built-in template if file not found
		reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(string(templateContent)))
}

// ReportData holds data for report template rendering
type ReportData struct {
	Title       string
	ScopeLabel  string
	GeneratedAt time.Time
	Rows        []store.ReportRow
}

// RenderReportHTML renders the report template with provided data
func RenderReportHTML(data ReportData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2rem; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    table { border-collapse: collapse; width: 100%; font-size: 0.85em; }
    th, td { border: 1px solid #999; padding: 4px 6px; text-align: left; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>{{.ScopeLabel}} | {{formatDate .GeneratedAt "Jan 2, 2006"}}</p>
  <table>
    <tr><th>Institution</th><th>Khatha No</th><th>Year</th><th>Total</th><th>Approved</th></tr>
    {{range .Rows}}
    <tr>
      <td>{{.InstitutionName}}</td>
      <td>{{.KhathaOrPropertyNo}}</td>
      {{if .HasPayment}}<td>{{.Payment.PaymentYear}}</td><td>{{.Payment.TotalAmount}}</td><td>{{if .Payment.ApprovalStatus}}Yes{{else}}No{{end}}</td>
      {{else}}<td colspan="3">No payments recorded</td>{{end}}
    </tr>
    {{end}}
  </table>
</body>
</html>`
