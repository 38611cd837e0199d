package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// reportTemplate is the print stylesheet and layout for PDF reports. Kept
// inline so the package has no runtime asset dependency.
const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  @page { size: letter; margin: 0.75in; }
  body { font-family: Georgia, 'Times New Roman', serif; color: #1a1a1a; }
  h1 { font-size: 20pt; border-bottom: 2px solid #1a1a1a; padding-bottom: 8px; }
  .meta { color: #666; font-size: 9pt; margin-bottom: 16px; }
  table { width: 100%; border-collapse: collapse; font-size: 8.5pt; }
  th { text-align: left; border-bottom: 1.5px solid #1a1a1a; padding: 4px 6px; }
  td { border-bottom: 0.5px solid #ccc; padding: 4px 6px; vertical-align: top; }
  tr { page-break-inside: avoid; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">Generated {{formatDate .GeneratedAt "2 Jan 2006 15:04 MST"}} &middot; {{len .Rows}} rows</div>
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>`

var compiledReportTemplate = template.Must(
	template.New("report").Funcs(template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}).Parse(reportTemplate))

// templateRow exposes row cells to the template.
type templateRow struct {
	Cells []string
}

func renderHTML(data reportData) (string, error) {
	rows := make([]templateRow, len(data.Rows))
	for i, r := range data.Rows {
		rows[i] = templateRow{Cells: r.cells}
	}
	var buf bytes.Buffer
	err := compiledReportTemplate.Execute(&buf, struct {
		Title       string
		GeneratedAt time.Time
		Headers     []string
		Rows        []templateRow
	}{
		Title:       data.Title,
		GeneratedAt: data.GeneratedAt,
		Headers:     data.Headers,
		Rows:        rows,
	})
	if err != nil {
		return "", fmt.Errorf("render report template: %w", err)
	}
	return buf.String(), nil
}
