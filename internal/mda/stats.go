package mda

import (
	"context"
	"sort"
)

// MonthlyTrend aggregates tender activity for one calendar month.
type MonthlyTrend struct {
	Month       string  `json:"month"` // "2026-01"
	TenderCount int     `json:"tenderCount"`
	TotalValue  float64 `json:"totalValue"`
}

// MDAStats aggregates one MDA's tender activity. All figures are computed
// from stored tender data; earlier portal releases shipped random
// placeholders for trends and efficiency, which this store does not.
type MDAStats struct {
	MDAID          string         `json:"mdaId"`
	TotalTenders   int            `json:"totalTenders"`
	ActiveTenders  int            `json:"activeTenders"`
	DraftTenders   int            `json:"draftTenders"`
	AwardedTenders int            `json:"awardedTenders"`
	TotalValue     float64        `json:"totalValue"`
	MonthlyTrends  []MonthlyTrend `json:"monthlyTrends"`
	// Efficiency is awarded / (closed + evaluated + awarded); 0 when no
	// tender has completed its cycle yet.
	Efficiency float64 `json:"efficiency"`
}

// SystemStats aggregates across every collection.
type SystemStats struct {
	TotalMDAs     int     `json:"totalMdas"`
	ActiveMDAs    int     `json:"activeMdas"`
	TotalAdmins   int     `json:"totalAdmins"`
	TotalUsers    int     `json:"totalUsers"`
	TotalTenders  int     `json:"totalTenders"`
	ActiveTenders int     `json:"activeTenders"`
	TotalValue    float64 `json:"totalValue"`
}

// MDAStats derives aggregates for one MDA by scanning its tenders.
func (s *Service) MDAStats(ctx context.Context, mdaID string) (MDAStats, error) {
	tenders, err := s.Tenders(ctx, mdaID)
	if err != nil {
		return MDAStats{}, err
	}

	stats := MDAStats{MDAID: mdaID}
	byMonth := make(map[string]*MonthlyTrend)
	completed, awarded := 0, 0

	for _, t := range tenders {
		stats.TotalTenders++
		stats.TotalValue += t.Value
		switch t.Status {
		case TenderPublished:
			stats.ActiveTenders++
		case TenderDraft:
			stats.DraftTenders++
		case TenderAwarded:
			stats.AwardedTenders++
			awarded++
			completed++
		case TenderClosed, TenderEvaluated:
			completed++
		}

		month := t.CreatedAt.Format("2006-01")
		trend, ok := byMonth[month]
		if !ok {
			trend = &MonthlyTrend{Month: month}
			byMonth[month] = trend
		}
		trend.TenderCount++
		trend.TotalValue += t.Value
	}

	if completed > 0 {
		stats.Efficiency = float64(awarded) / float64(completed)
	}

	stats.MonthlyTrends = make([]MonthlyTrend, 0, len(byMonth))
	for _, trend := range byMonth {
		stats.MonthlyTrends = append(stats.MonthlyTrends, *trend)
	}
	sort.Slice(stats.MonthlyTrends, func(i, j int) bool {
		return stats.MonthlyTrends[i].Month < stats.MonthlyTrends[j].Month
	})
	return stats, nil
}

// SystemStats derives portal-wide aggregates across all four collections.
func (s *Service) SystemStats(ctx context.Context) (SystemStats, error) {
	mdas, err := loadCollection[MDA](ctx, s.facade, keyMDAs)
	if err != nil {
		return SystemStats{}, err
	}
	admins, err := loadCollection[Admin](ctx, s.facade, keyAdmins)
	if err != nil {
		return SystemStats{}, err
	}
	users, err := loadCollection[User](ctx, s.facade, keyUsers)
	if err != nil {
		return SystemStats{}, err
	}
	tenders, err := loadCollection[Tender](ctx, s.facade, keyTenders)
	if err != nil {
		return SystemStats{}, err
	}

	stats := SystemStats{
		TotalMDAs:    len(mdas),
		TotalAdmins:  len(admins),
		TotalUsers:   len(users),
		TotalTenders: len(tenders),
	}
	for _, m := range mdas {
		if m.IsActive {
			stats.ActiveMDAs++
		}
	}
	for _, t := range tenders {
		stats.TotalValue += t.Value
		if t.Status == TenderPublished {
			stats.ActiveTenders++
		}
	}
	return stats, nil
}
