package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"tenderhub/internal/mda"
)

// Local is the fallback Searcher: a linear scan over the MDA store. Slow
// but dependency-free, so search keeps working when Meilisearch is down.
type Local struct {
	mdas *mda.Service
}

func NewLocal(mdas *mda.Service) *Local {
	return &Local{mdas: mdas}
}

// Healthy always reports true; the local scan has no external dependency.
func (l *Local) Healthy() bool {
	return true
}

// Search scans tenders and MDAs for case-insensitive substring matches.
func (l *Local) Search(q Query) ([]Result, int, error) {
	ctx := context.Background()
	text := strings.ToLower(strings.TrimSpace(q.Text))

	var results []Result
	if q.FilterType == "" || q.FilterType == ResultTender {
		tenders, err := l.mdas.Tenders(ctx, q.FilterMDAID)
		if err != nil {
			return nil, 0, fmt.Errorf("local tender scan: %w", err)
		}
		for _, t := range tenders {
			if q.FilterStatus != "" && string(t.Status) != q.FilterStatus {
				continue
			}
			if !matches(text, t.Title, t.Description, t.Category) {
				continue
			}
			results = append(results, Result{
				Type:    ResultTender,
				ID:      t.ID,
				Title:   t.Title,
				Snippet: snippet(t.Description),
				MDAID:   t.MDAID,
				Status:  string(t.Status),
			})
		}
	}
	if q.FilterType == "" || q.FilterType == ResultMDA {
		mdas, err := l.mdas.GetAllMDAs(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("local mda scan: %w", err)
		}
		for _, m := range mdas {
			if !matches(text, m.Name, m.Description) {
				continue
			}
			results = append(results, Result{
				Type:    ResultMDA,
				ID:      m.ID,
				Title:   m.Name,
				Snippet: snippet(m.Description),
			})
		}
	}

	total := len(results)
	results = paginate(results, q.Offset, q.Limit)
	return results, total, nil
}

func matches(needle string, fields ...string) bool {
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func snippet(s string) string {
	const max = 160
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func paginate(results []Result, offset, limit int) []Result {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []Result{}
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}
