package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tenderhub/internal/audit"
	"tenderhub/internal/mda"
)

// Service renders portal datasets into downloadable report artifacts.
type Service struct {
	audits *audit.Store
	mdas   *mda.Service
}

func NewService(audits *audit.Store, mdas *mda.Service) *Service {
	return &Service{audits: audits, mdas: mdas}
}

// Export generates a report in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	var (
		data reportData
		err  error
	)
	switch req.Report {
	case ReportAudit:
		data, err = s.auditReport(ctx, req.Limit)
	case ReportTenders:
		data, err = s.tenderReport(ctx, req.MDAID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, req.Report)
	}
	if err != nil {
		return nil, err
	}

	switch req.Format {
	case FormatJSON:
		return exportJSON(data)
	case FormatCSV:
		return exportCSV(data)
	case FormatPDF:
		return exportPDF(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, req.Format)
	}
}

func (s *Service) auditReport(ctx context.Context, limit int) (reportData, error) {
	logs, err := s.audits.GetLogs(ctx, nil, limit)
	if err != nil {
		return reportData{}, fmt.Errorf("load audit logs: %w", err)
	}

	data := reportData{
		Title:       "Audit Trail Report",
		GeneratedAt: time.Now().UTC(),
		Headers:     []string{"Timestamp", "User", "Role", "Action", "Entity", "Entity ID", "Severity", "Details"},
	}
	for _, entry := range logs {
		data.Rows = append(data.Rows, row{cells: []string{
			entry.Timestamp.Format(time.RFC3339),
			entry.User,
			entry.UserRole,
			entry.Action,
			entry.Entity,
			entry.EntityID,
			string(entry.Severity),
			entry.Details,
		}})
	}
	return data, nil
}

func (s *Service) tenderReport(ctx context.Context, mdaID string) (reportData, error) {
	tenders, err := s.mdas.Tenders(ctx, mdaID)
	if err != nil {
		return reportData{}, fmt.Errorf("load tenders: %w", err)
	}
	names := map[string]string{}
	if all, err := s.mdas.GetAllMDAs(ctx); err == nil {
		for _, m := range all {
			names[m.ID] = m.Name
		}
	}

	data := reportData{
		Title:       "Tender Report",
		GeneratedAt: time.Now().UTC(),
		Headers:     []string{"ID", "Title", "MDA", "Category", "Status", "Value", "Created"},
	}
	for _, t := range tenders {
		mdaName := names[t.MDAID]
		if mdaName == "" {
			mdaName = t.MDAID
		}
		data.Rows = append(data.Rows, row{cells: []string{
			t.ID,
			t.Title,
			mdaName,
			t.Category,
			string(t.Status),
			strconv.FormatFloat(t.Value, 'f', 2, 64),
			t.CreatedAt.Format(time.RFC3339),
		}})
	}
	return data, nil
}

func exportJSON(data reportData) (*Result, error) {
	type jsonRow map[string]string
	out := struct {
		Title       string    `json:"title"`
		GeneratedAt time.Time `json:"generatedAt"`
		Rows        []jsonRow `json:"rows"`
	}{
		Title:       data.Title,
		GeneratedAt: data.GeneratedAt,
		Rows:        []jsonRow{},
	}
	for _, r := range data.Rows {
		jr := jsonRow{}
		for i, h := range data.Headers {
			if i < len(r.cells) {
				jr[h] = r.cells[i]
			}
		}
		out.Rows = append(out.Rows, jr)
	}

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return &Result{
		Data:     payload,
		Filename: sanitizeFilename(data.Title) + ".json",
		MimeType: "application/json",
	}, nil
}

func exportCSV(data reportData) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range data.Rows {
		if err := w.Write(r.cells); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(data.Title) + ".csv",
		MimeType: "text/csv",
	}, nil
}
