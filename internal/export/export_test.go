package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"tenderhub/internal/audit"
	"tenderhub/internal/kvstore"
	"tenderhub/internal/mda"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	facade := kvstore.New(context.Background(), kvstore.NewMemoryBackend())
	ctx := context.Background()

	audits := audit.NewStore(facade, 0)
	if _, err := audits.AddLog(ctx, audit.Entry{
		User: "admin@gov.ng", UserRole: "superadmin", Action: "mda_created",
		Entity: "mda", EntityID: "mda-1", Details: `created "Ministry, of Works"`,
		Severity: audit.SeverityMedium,
	}); err != nil {
		t.Fatalf("seed audit log: %v", err)
	}

	mdas := mda.NewService(facade, nil)
	works, err := mdas.CreateMDA(ctx, mda.MDA{Name: "Ministry of Works", Type: mda.TypeMinistry})
	if err != nil {
		t.Fatalf("create mda: %v", err)
	}
	if _, err := mdas.CreateTender(ctx, mda.Tender{
		MDAID: works.ID, Title: "Highway Rehabilitation", Category: "construction",
		Value: 1250000.50, Status: mda.TenderPublished,
	}); err != nil {
		t.Fatalf("create tender: %v", err)
	}

	return NewService(audits, mdas)
}

func TestExportAuditJSON(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Export(context.Background(), Request{Report: ReportAudit, Format: FormatJSON})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.MimeType != "application/json" {
		t.Errorf("expected json mime type, got %s", result.MimeType)
	}
	if !strings.HasSuffix(result.Filename, ".json") {
		t.Errorf("expected .json filename, got %s", result.Filename)
	}

	var parsed struct {
		Title string              `json:"title"`
		Rows  []map[string]string `json:"rows"`
	}
	if err := json.Unmarshal(result.Data, &parsed); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if len(parsed.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(parsed.Rows))
	}
	if parsed.Rows[0]["Action"] != "mda_created" {
		t.Errorf("expected mda_created action, got %q", parsed.Rows[0]["Action"])
	}
}

func TestExportAuditCSVEscapesCommas(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Export(context.Background(), Request{Report: ReportAudit, Format: FormatCSV})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(result.Data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}
	// The details field contains a comma and quotes; the reader must
	// recover it intact.
	details := records[1][len(records[1])-1]
	if details != `created "Ministry, of Works"` {
		t.Errorf("details mangled by csv round trip: %q", details)
	}
}

func TestExportTenderReport(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Export(context.Background(), Request{Report: ReportTenders, Format: FormatCSV})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(result.Data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}
	rec := records[1]
	if rec[1] != "Highway Rehabilitation" {
		t.Errorf("expected tender title, got %q", rec[1])
	}
	if rec[2] != "Ministry of Works" {
		t.Errorf("expected MDA name joined in, got %q", rec[2])
	}
	if rec[5] != "1250000.50" {
		t.Errorf("expected formatted value, got %q", rec[5])
	}
}

func TestExportUnknownReportAndFormat(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Export(ctx, Request{Report: "bids", Format: FormatJSON}); !errors.Is(err, ErrUnknownReport) {
		t.Errorf("expected ErrUnknownReport, got %v", err)
	}
	if _, err := svc.Export(ctx, Request{Report: ReportAudit, Format: "xlsx"}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	data := reportData{
		Title:   "Report <script>",
		Headers: []string{"Col"},
		Rows:    []row{{cells: []string{"<b>bold</b>"}}},
	}
	html, err := renderHTML(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") || strings.Contains(html, "<b>bold</b>") {
		t.Error("template must escape user content")
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("Audit Trail Report"); got != "Audit-Trail-Report" {
		t.Errorf("got %q", got)
	}
	if got := sanitizeFilename("///"); got != "report" {
		t.Errorf("empty sanitization must fall back, got %q", got)
	}
}
