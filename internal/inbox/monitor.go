package inbox

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"tenderhub/internal/kvstore"
)

const (
	stateKeyPrefix      = "companyTenderStates"
	recentTendersSuffix = "recentTenders"
)

// TenderState is one watched tender in a company's state record. The
// LastNotifiedStatus marker makes the monitor idempotent: a status only
// produces a message once.
type TenderState struct {
	TenderID           string `json:"tenderId"`
	Title              string `json:"title"`
	LastNotifiedStatus string `json:"lastNotifiedStatus"`
}

// recentTender is the shape of entries under *_recentTenders keys.
type recentTender struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Monitor reconciles watched tender states against recent tender lists
// and delivers status-change messages. Scheduling is the caller's job;
// Run wraps CheckOnce in a ticker for convenience.
type Monitor struct {
	facade *kvstore.Facade
	inbox  *Service
}

func NewMonitor(facade *kvstore.Facade, inbox *Service) *Monitor {
	return &Monitor{facade: facade, inbox: inbox}
}

// Run polls at the given interval until the context is cancelled. One
// check runs immediately on start.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.CheckOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce scans every company state record, compares each watched tender
// against the current status index, and sends one message per observed
// change. Markers are advanced before returning so a repeat call with no
// new changes sends nothing.
func (m *Monitor) CheckOnce(ctx context.Context) {
	statuses := m.currentStatuses(ctx)
	if len(statuses) == 0 {
		return
	}

	for _, key := range m.facade.Keys(ctx) {
		if !strings.HasPrefix(key, stateKeyPrefix) {
			continue
		}
		email := strings.TrimPrefix(strings.TrimPrefix(key, stateKeyPrefix), "_")
		if email == "" {
			continue
		}
		m.reconcile(ctx, key, email, statuses)
	}
}

func (m *Monitor) reconcile(ctx context.Context, key, email string, statuses map[string]string) {
	raw, err := m.facade.GetItem(ctx, key)
	if err != nil {
		return
	}
	var states map[string]TenderState
	if err := json.Unmarshal([]byte(raw), &states); err != nil {
		log.Printf("inbox monitor: skipping corrupt state record %s: %v", key, err)
		return
	}

	changed := false
	for tenderID, state := range states {
		status, ok := statuses[tenderID]
		if !ok || status == state.LastNotifiedStatus {
			continue
		}
		msg := TenderStatusUpdate(tenderID, state.Title, state.LastNotifiedStatus, status)
		if _, err := m.inbox.AddMessage(ctx, msg, email); err != nil {
			log.Printf("inbox monitor: notify %s about %s: %v", email, tenderID, err)
			continue
		}
		state.LastNotifiedStatus = status
		states[tenderID] = state
		changed = true
	}
	if !changed {
		return
	}

	payload, err := json.Marshal(states)
	if err != nil {
		log.Printf("inbox monitor: marshal state record %s: %v", key, err)
		return
	}
	m.facade.SetItem(ctx, key, string(payload))
}

// currentStatuses builds a tender id -> status index from every key ending
// in recentTenders. Later keys win on conflict; there is no ordering
// guarantee between lists.
func (m *Monitor) currentStatuses(ctx context.Context) map[string]string {
	statuses := make(map[string]string)
	for _, key := range m.facade.Keys(ctx) {
		if !strings.HasSuffix(key, recentTendersSuffix) {
			continue
		}
		raw, err := m.facade.GetItem(ctx, key)
		if err != nil {
			continue
		}
		var tenders []recentTender
		if err := json.Unmarshal([]byte(raw), &tenders); err != nil {
			log.Printf("inbox monitor: skipping corrupt tender list %s: %v", key, err)
			continue
		}
		for _, t := range tenders {
			if t.ID != "" {
				statuses[t.ID] = t.Status
			}
		}
	}
	return statuses
}
