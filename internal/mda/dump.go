package mda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Dump is a whole-store snapshot of the four collections.
type Dump struct {
	ExportedAt time.Time `json:"exportedAt"`
	MDAs       []MDA     `json:"mdas"`
	Admins     []Admin   `json:"mdaAdmins"`
	Users      []User    `json:"mdaUsers"`
	Tenders    []Tender  `json:"mdaTenders"`
}

// ExportData serializes every collection into one JSON document.
func (s *Service) ExportData(ctx context.Context) (string, error) {
	mdas, err := loadCollection[MDA](ctx, s.facade, keyMDAs)
	if err != nil {
		return "", err
	}
	admins, err := loadCollection[Admin](ctx, s.facade, keyAdmins)
	if err != nil {
		return "", err
	}
	users, err := loadCollection[User](ctx, s.facade, keyUsers)
	if err != nil {
		return "", err
	}
	tenders, err := loadCollection[Tender](ctx, s.facade, keyTenders)
	if err != nil {
		return "", err
	}

	dump := Dump{
		ExportedAt: time.Now().UTC(),
		MDAs:       emptyIfNil(mdas),
		Admins:     emptyIfNil(admins),
		Users:      emptyIfNil(users),
		Tenders:    emptyIfNil(tenders),
	}
	payload, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal dump: %w", err)
	}
	return string(payload), nil
}

// ImportData restores a previous ExportData payload over the current store.
// Validation is limited to the presence of every top-level collection key;
// record shapes are trusted as exported.
func (s *Service) ImportData(ctx context.Context, payload string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return fmt.Errorf("parse dump: %w", err)
	}
	for _, key := range []string{"mdas", "mdaAdmins", "mdaUsers", "mdaTenders"} {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("dump missing collection %q", key)
		}
	}

	var dump Dump
	if err := json.Unmarshal([]byte(payload), &dump); err != nil {
		return fmt.Errorf("parse dump collections: %w", err)
	}

	if err := saveCollection(ctx, s.facade, keyMDAs, dump.MDAs); err != nil {
		return err
	}
	if err := saveCollection(ctx, s.facade, keyAdmins, dump.Admins); err != nil {
		return err
	}
	if err := saveCollection(ctx, s.facade, keyUsers, dump.Users); err != nil {
		return err
	}
	return saveCollection(ctx, s.facade, keyTenders, dump.Tenders)
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
