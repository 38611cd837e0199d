// Package audit provides the portal's append-only, bounded audit trail.
// Entries live as one JSON array under a single facade key; every write
// loads the full list, prepends, re-sorts and persists. That is O(n log n)
// per write and fine at the single-portal volumes this store serves.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tenderhub/internal/kvstore"
	"tenderhub/internal/util"
)

const storageKey = "audit_logs"

// DefaultMaxLogs bounds the retained list; the oldest entries are dropped
// once the bound is exceeded.
const DefaultMaxLogs = 10000

// ErrCorruptData indicates the stored log list failed to parse. The caller
// decides whether to clear and restart; the store never silently discards.
var ErrCorruptData = errors.New("audit: stored log data is corrupt")

// Severity grades an audit entry.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Entry is a single immutable audit record.
type Entry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	User      string            `json:"user"`
	UserRole  string            `json:"userRole"`
	Action    string            `json:"action"`
	Entity    string            `json:"entity"`
	EntityID  string            `json:"entityId,omitempty"`
	Details   string            `json:"details"`
	Severity  Severity          `json:"severity"`
	IPAddress string            `json:"ipAddress,omitempty"`
	UserAgent string            `json:"userAgent,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Filter is a conjunction of optional criteria for GetLogs. Zero fields
// match everything. From/To are inclusive.
type Filter struct {
	User     string
	Action   string
	Entity   string
	Severity Severity
	From     time.Time
	To       time.Time
	Search   string
}

// Stats summarizes the retained log list.
type Stats struct {
	TotalLogs      int              `json:"totalLogs"`
	LogsBySeverity map[Severity]int `json:"logsBySeverity"`
	LogsByUser     map[string]int   `json:"logsByUser"`
	LogsByAction   map[string]int   `json:"logsByAction"`
	NewestLog      time.Time        `json:"newestLog"`
	OldestLog      time.Time        `json:"oldestLog"`
}

// Store persists audit entries through the key-value facade.
type Store struct {
	facade  *kvstore.Facade
	maxLogs int
}

// NewStore builds an audit store. maxLogs <= 0 selects DefaultMaxLogs.
func NewStore(facade *kvstore.Facade, maxLogs int) *Store {
	if maxLogs <= 0 {
		maxLogs = DefaultMaxLogs
	}
	return &Store{facade: facade, maxLogs: maxLogs}
}

// AddLog assigns an id and timestamp, appends the entry and persists the
// re-sorted, bounded list. Returns the new entry's id.
func (s *Store) AddLog(ctx context.Context, entry Entry) (string, error) {
	logs, err := s.loadAll(ctx)
	if err != nil {
		return "", err
	}

	entry.ID = util.LogID()
	// Millisecond truncation keeps timestamps byte-stable through the JSON
	// round trip.
	entry.Timestamp = time.Now().UTC().Truncate(time.Millisecond)

	// Prepend before the stable sort so that entries sharing a timestamp
	// keep newest-added-first order.
	logs = append([]Entry{entry}, logs...)
	sortNewestFirst(logs)
	if len(logs) > s.maxLogs {
		logs = logs[:s.maxLogs]
	}

	if err := s.saveAll(ctx, logs); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// GetLogs returns entries matching filter, newest first, truncated to limit
// when limit > 0. A nil filter matches everything.
func (s *Store) GetLogs(ctx context.Context, filter *Filter, limit int) ([]Entry, error) {
	logs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		filtered := logs[:0]
		for _, entry := range logs {
			if filter.matches(entry) {
				filtered = append(filtered, entry)
			}
		}
		logs = filtered
	}
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// LogsByUser returns all entries whose user contains user.
func (s *Store) LogsByUser(ctx context.Context, user string) ([]Entry, error) {
	return s.GetLogs(ctx, &Filter{User: user}, 0)
}

// LogsByAction returns all entries whose action contains action.
func (s *Store) LogsByAction(ctx context.Context, action string) ([]Entry, error) {
	return s.GetLogs(ctx, &Filter{Action: action}, 0)
}

// LogsBySeverity returns all entries with exactly the given severity.
func (s *Store) LogsBySeverity(ctx context.Context, severity Severity) ([]Entry, error) {
	return s.GetLogs(ctx, &Filter{Severity: severity}, 0)
}

// RecentLogs returns the newest limit entries.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]Entry, error) {
	return s.GetLogs(ctx, nil, limit)
}

// ClearAll unconditionally deletes the backing key.
func (s *Store) ClearAll(ctx context.Context) {
	s.facade.RemoveItem(ctx, storageKey)
}

// Stats computes aggregate counts in a single pass. The list is stored
// newest-first, so newest/oldest are the head and tail.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	logs, err := s.loadAll(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalLogs:      len(logs),
		LogsBySeverity: make(map[Severity]int),
		LogsByUser:     make(map[string]int),
		LogsByAction:   make(map[string]int),
	}
	for _, entry := range logs {
		stats.LogsBySeverity[entry.Severity]++
		stats.LogsByUser[entry.User]++
		stats.LogsByAction[entry.Action]++
	}
	if len(logs) > 0 {
		stats.NewestLog = logs[0].Timestamp
		stats.OldestLog = logs[len(logs)-1].Timestamp
	}
	return stats, nil
}

func (s *Store) loadAll(ctx context.Context) ([]Entry, error) {
	raw, err := s.facade.GetItem(ctx, storageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load audit logs: %w", err)
	}

	var logs []Entry
	if err := json.Unmarshal([]byte(raw), &logs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return logs, nil
}

func (s *Store) saveAll(ctx context.Context, logs []Entry) error {
	payload, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("marshal audit logs: %w", err)
	}
	s.facade.SetItem(ctx, storageKey, string(payload))
	return nil
}

func sortNewestFirst(logs []Entry) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})
}

func (f *Filter) matches(entry Entry) bool {
	if f.User != "" && !containsFold(entry.User, f.User) {
		return false
	}
	if f.Action != "" && !containsFold(entry.Action, f.Action) {
		return false
	}
	if f.Entity != "" && !containsFold(entry.Entity, f.Entity) {
		return false
	}
	if f.Severity != "" && entry.Severity != f.Severity {
		return false
	}
	if !f.From.IsZero() && entry.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && entry.Timestamp.After(f.To) {
		return false
	}
	if f.Search != "" {
		if !containsFold(entry.User, f.Search) &&
			!containsFold(entry.Action, f.Search) &&
			!containsFold(entry.Entity, f.Search) &&
			!containsFold(entry.Details, f.Search) {
			return false
		}
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
