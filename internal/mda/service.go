// Package mda provides CRUD over the portal's four organizational
// collections: MDAs, their admins and users, and their tenders. Each
// collection is one JSON array under a fixed facade key; every mutation is a
// whole-collection read-modify-write with no versioning, so concurrent
// writers from separate processes race last-write-wins.
package mda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"tenderhub/internal/kvstore"
	"tenderhub/internal/util"
)

const (
	keyMDAs    = "mdas"
	keyAdmins  = "mda_admins"
	keyUsers   = "mda_users"
	keyTenders = "mda_tenders"
)

var (
	// ErrNotFound indicates the record id does not exist in its collection.
	ErrNotFound = errors.New("mda: record not found")
	// ErrCorruptData indicates a stored collection failed to parse.
	ErrCorruptData = errors.New("mda: stored collection is corrupt")
)

// Service owns the four collections. Construct once and share by reference.
type Service struct {
	facade    *kvstore.Facade
	directory Directory
}

// NewService builds the store. A nil directory selects SyntheticDirectory.
func NewService(facade *kvstore.Facade, directory Directory) *Service {
	if directory == nil {
		directory = SyntheticDirectory{}
	}
	return &Service{facade: facade, directory: directory}
}

// Available reports whether the underlying facade still has its backend.
func (s *Service) Available() bool {
	return s.facade.Available()
}

// CreateMDA stamps id, timestamps and isActive=true, then persists.
func (s *Service) CreateMDA(ctx context.Context, input MDA) (MDA, error) {
	mdas, err := loadCollection[MDA](ctx, s.facade, keyMDAs)
	if err != nil {
		return MDA{}, err
	}

	now := nowUTC()
	input.ID = util.TimedID("mda")
	input.CreatedAt = now
	input.UpdatedAt = now
	input.IsActive = true

	mdas = append(mdas, input)
	if err := saveCollection(ctx, s.facade, keyMDAs, mdas); err != nil {
		return MDA{}, err
	}
	return input, nil
}

// GetMDA returns the record with the given id, active or not.
func (s *Service) GetMDA(ctx context.Context, id string) (MDA, error) {
	mdas, err := loadCollection[MDA](ctx, s.facade, keyMDAs)
	if err != nil {
		return MDA{}, err
	}
	for _, m := range mdas {
		if m.ID == id {
			return m, nil
		}
	}
	return MDA{}, ErrNotFound
}

// GetAllMDAs returns active records sorted by name.
func (s *Service) GetAllMDAs(ctx context.Context) ([]MDA, error) {
	mdas, err := loadCollection[MDA](ctx, s.facade, keyMDAs)
	if err != nil {
		return nil, err
	}
	active := make([]MDA, 0, len(mdas))
	for _, m := range mdas {
		if m.IsActive {
			active = append(active, m)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Name < active[j].Name })
	return active, nil
}

// UpdateMDA merges patch over the stored record and bumps updatedAt.
func (s *Service) UpdateMDA(ctx context.Context, id string, patch Patch) (MDA, error) {
	mdas, err := loadCollection[MDA](ctx, s.facade, keyMDAs)
	if err != nil {
		return MDA{}, err
	}
	for i := range mdas {
		if mdas[i].ID != id {
			continue
		}
		applyPatch(&mdas[i], patch)
		mdas[i].UpdatedAt = nowUTC()
		if err := saveCollection(ctx, s.facade, keyMDAs, mdas); err != nil {
			return MDA{}, err
		}
		return mdas[i], nil
	}
	return MDA{}, ErrNotFound
}

// DeleteMDA removes the record outright and hard-deletes its admins and
// users. Tenders under the MDA are deliberately left in place: callers and
// reports continue to see them via Tenders(mdaID). This asymmetry matches
// the portal's historical behavior and is pinned by tests.
func (s *Service) DeleteMDA(ctx context.Context, id string) error {
	mdas, err := loadCollection[MDA](ctx, s.facade, keyMDAs)
	if err != nil {
		return err
	}
	kept := mdas[:0]
	found := false
	for _, m := range mdas {
		if m.ID == id {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return ErrNotFound
	}
	if err := saveCollection(ctx, s.facade, keyMDAs, kept); err != nil {
		return err
	}

	admins, err := loadCollection[Admin](ctx, s.facade, keyAdmins)
	if err != nil {
		return err
	}
	keptAdmins := admins[:0]
	for _, a := range admins {
		if a.MDAID != id {
			keptAdmins = append(keptAdmins, a)
		}
	}
	if err := saveCollection(ctx, s.facade, keyAdmins, keptAdmins); err != nil {
		return err
	}

	users, err := loadCollection[User](ctx, s.facade, keyUsers)
	if err != nil {
		return err
	}
	keptUsers := users[:0]
	for _, u := range users {
		if u.MDAID != id {
			keptUsers = append(keptUsers, u)
		}
	}
	return saveCollection(ctx, s.facade, keyUsers, keptUsers)
}

// CreateAdmin stamps id and a synthesized userId, then persists.
func (s *Service) CreateAdmin(ctx context.Context, input Admin) (Admin, error) {
	admins, err := loadCollection[Admin](ctx, s.facade, keyAdmins)
	if err != nil {
		return Admin{}, err
	}

	input.ID = util.TimedID("admin")
	input.UserID = util.TimedID("user")
	input.CreatedAt = nowUTC()
	input.IsActive = true

	admins = append(admins, input)
	if err := saveCollection(ctx, s.facade, keyAdmins, admins); err != nil {
		return Admin{}, err
	}
	return input, nil
}

// Admins lists admin records, scoped to mdaID when non-empty, each joined
// with its MDA name and a directory profile.
func (s *Service) Admins(ctx context.Context, mdaID string) ([]AdminView, error) {
	admins, err := loadCollection[Admin](ctx, s.facade, keyAdmins)
	if err != nil {
		return nil, err
	}
	names, err := s.mdaNames(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]AdminView, 0, len(admins))
	for _, a := range admins {
		if mdaID != "" && a.MDAID != mdaID {
			continue
		}
		views = append(views, AdminView{
			Admin:   a,
			MDAName: names[a.MDAID],
			Profile: s.directory.Lookup(a.UserID, a.Email),
		})
	}
	return views, nil
}

// CreateUser stamps id and a synthesized userId, then persists.
func (s *Service) CreateUser(ctx context.Context, input User) (User, error) {
	users, err := loadCollection[User](ctx, s.facade, keyUsers)
	if err != nil {
		return User{}, err
	}

	input.ID = util.TimedID("mdauser")
	input.UserID = util.TimedID("user")
	input.CreatedAt = nowUTC()
	input.IsActive = true

	users = append(users, input)
	if err := saveCollection(ctx, s.facade, keyUsers, users); err != nil {
		return User{}, err
	}
	return input, nil
}

// Users lists active user records for one MDA, joined like Admins.
func (s *Service) Users(ctx context.Context, mdaID string) ([]UserView, error) {
	users, err := loadCollection[User](ctx, s.facade, keyUsers)
	if err != nil {
		return nil, err
	}
	names, err := s.mdaNames(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		if u.MDAID != mdaID || !u.IsActive {
			continue
		}
		views = append(views, UserView{
			User:    u,
			MDAName: names[u.MDAID],
			Profile: s.directory.Lookup(u.UserID, u.Email),
		})
	}
	return views, nil
}

// CreateTender stamps id and timestamps, then persists. Status defaults to
// draft when unset.
func (s *Service) CreateTender(ctx context.Context, input Tender) (Tender, error) {
	tenders, err := loadCollection[Tender](ctx, s.facade, keyTenders)
	if err != nil {
		return Tender{}, err
	}

	now := nowUTC()
	input.ID = util.TimedID("tender")
	input.CreatedAt = now
	input.UpdatedAt = now
	if input.Status == "" {
		input.Status = TenderDraft
	}

	tenders = append(tenders, input)
	if err := saveCollection(ctx, s.facade, keyTenders, tenders); err != nil {
		return Tender{}, err
	}
	return input, nil
}

// GetTender returns one tender by id.
func (s *Service) GetTender(ctx context.Context, id string) (Tender, error) {
	tenders, err := loadCollection[Tender](ctx, s.facade, keyTenders)
	if err != nil {
		return Tender{}, err
	}
	for _, t := range tenders {
		if t.ID == id {
			return t, nil
		}
	}
	return Tender{}, ErrNotFound
}

// Tenders lists tenders newest-first by createdAt, scoped to one MDA when
// mdaID is non-empty. Tenders survive deletion of their MDA (see DeleteMDA).
func (s *Service) Tenders(ctx context.Context, mdaID string) ([]Tender, error) {
	tenders, err := loadCollection[Tender](ctx, s.facade, keyTenders)
	if err != nil {
		return nil, err
	}
	scoped := make([]Tender, 0, len(tenders))
	for _, t := range tenders {
		if mdaID != "" && t.MDAID != mdaID {
			continue
		}
		scoped = append(scoped, t)
	}
	sort.Slice(scoped, func(i, j int) bool { return scoped[i].CreatedAt.After(scoped[j].CreatedAt) })
	return scoped, nil
}

// UpdateTender merges patch over the stored tender and bumps updatedAt.
func (s *Service) UpdateTender(ctx context.Context, id string, patch TenderPatch) (Tender, error) {
	tenders, err := loadCollection[Tender](ctx, s.facade, keyTenders)
	if err != nil {
		return Tender{}, err
	}
	for i := range tenders {
		if tenders[i].ID != id {
			continue
		}
		applyTenderPatch(&tenders[i], patch)
		tenders[i].UpdatedAt = nowUTC()
		if err := saveCollection(ctx, s.facade, keyTenders, tenders); err != nil {
			return Tender{}, err
		}
		return tenders[i], nil
	}
	return Tender{}, ErrNotFound
}

func (s *Service) mdaNames(ctx context.Context) (map[string]string, error) {
	mdas, err := loadCollection[MDA](ctx, s.facade, keyMDAs)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(mdas))
	for _, m := range mdas {
		names[m.ID] = m.Name
	}
	return names, nil
}

func applyPatch(m *MDA, patch Patch) {
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Description != nil {
		m.Description = *patch.Description
	}
	if patch.ContactEmail != nil {
		m.ContactEmail = *patch.ContactEmail
	}
	if patch.ContactPhone != nil {
		m.ContactPhone = *patch.ContactPhone
	}
	if patch.Address != nil {
		m.Address = *patch.Address
	}
	if patch.HeadOfMDA != nil {
		m.HeadOfMDA = *patch.HeadOfMDA
	}
	if patch.Settings != nil {
		m.Settings = *patch.Settings
	}
	if patch.IsActive != nil {
		m.IsActive = *patch.IsActive
	}
}

func applyTenderPatch(t *Tender, patch TenderPatch) {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Value != nil {
		t.Value = *patch.Value
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.PublishDate != nil {
		t.PublishDate = *patch.PublishDate
	}
	if patch.CloseDate != nil {
		t.CloseDate = *patch.CloseDate
	}
}

// nowUTC truncates to millisecond so a stored timestamp round-trips
// byte-identical through JSON; stripping the monotonic reading also keeps
// records comparable with reflect.DeepEqual.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func loadCollection[T any](ctx context.Context, facade *kvstore.Facade, key string) ([]T, error) {
	raw, err := facade.GetItem(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, key, err)
	}
	return items, nil
}

func saveCollection[T any](ctx context.Context, facade *kvstore.Facade, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	facade.SetItem(ctx, key, string(payload))
	return nil
}
