package search

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"tenderhub/internal/kvstore"
	"tenderhub/internal/mda"
)

func seedStore(t *testing.T) *mda.Service {
	t.Helper()
	facade := kvstore.New(context.Background(), kvstore.NewMemoryBackend())
	svc := mda.NewService(facade, nil)
	ctx := context.Background()

	works, err := svc.CreateMDA(ctx, mda.MDA{Name: "Ministry of Works", Type: mda.TypeMinistry, Description: "Roads and bridges"})
	if err != nil {
		t.Fatalf("create mda: %v", err)
	}
	if _, err := svc.CreateMDA(ctx, mda.MDA{Name: "Health Agency", Type: mda.TypeAgency, Description: "Public health"}); err != nil {
		t.Fatalf("create mda: %v", err)
	}

	for _, tender := range []mda.Tender{
		{MDAID: works.ID, Title: "Highway Rehabilitation", Description: "Resurfacing of the A2 highway", Category: "construction", Status: mda.TenderPublished},
		{MDAID: works.ID, Title: "Bridge Inspection", Description: "Structural survey", Category: "consultancy", Status: mda.TenderClosed},
	} {
		if _, err := svc.CreateTender(ctx, tender); err != nil {
			t.Fatalf("create tender: %v", err)
		}
	}
	return svc
}

func TestLocalSearchMatchesTitleAndDescription(t *testing.T) {
	local := NewLocal(seedStore(t))

	results, total, err := local.Search(Query{Text: "highway"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 hit, got %d", total)
	}
	if results[0].Type != ResultTender || results[0].Title != "Highway Rehabilitation" {
		t.Errorf("unexpected hit: %+v", results[0])
	}
}

func TestLocalSearchCaseInsensitive(t *testing.T) {
	local := NewLocal(seedStore(t))

	_, total, err := local.Search(Query{Text: "HEALTH"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 hit for uppercase query, got %d", total)
	}
}

func TestLocalSearchStatusFilter(t *testing.T) {
	local := NewLocal(seedStore(t))

	results, _, err := local.Search(Query{FilterType: ResultTender, FilterStatus: "closed"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Bridge Inspection" {
		t.Errorf("expected only the closed tender, got %+v", results)
	}
}

func TestLocalSearchTypeFilter(t *testing.T) {
	local := NewLocal(seedStore(t))

	results, _, err := local.Search(Query{FilterType: ResultMDA})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range results {
		if r.Type != ResultMDA {
			t.Errorf("expected only mda results, got %s", r.Type)
		}
	}
	if len(results) != 2 {
		t.Errorf("expected 2 mda hits, got %d", len(results))
	}
}

func TestLocalSearchPagination(t *testing.T) {
	local := NewLocal(seedStore(t))

	results, total, err := local.Search(Query{Limit: 1, Offset: 0})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected page of 1, got %d", len(results))
	}
	if total < 2 {
		t.Errorf("total must count all hits, got %d", total)
	}
}

func TestServiceFallsBackWithoutMeili(t *testing.T) {
	svc := NewService(nil, NewLocal(seedStore(t)))

	resp := svc.Search(Query{Text: "bridge"})
	if resp.Total != 1 {
		t.Fatalf("expected 1 hit via fallback, got %d", resp.Total)
	}
	if resp.Query != "bridge" {
		t.Errorf("response must echo the query, got %q", resp.Query)
	}
}

func TestBuildRequestsCarriesQueryText(t *testing.T) {
	reqs := buildRequests(Query{Text: "highway", FilterStatus: "published"})
	if len(reqs) != 2 {
		t.Fatalf("expected requests for both indexes, got %d", len(reqs))
	}
	for _, r := range reqs {
		if r.Query != "highway" {
			t.Errorf("index %s request dropped the query text, got %q", r.IndexUID, r.Query)
		}
	}
	if reqs[0].IndexUID != idxTenders || len(reqs[0].Filter.([]string)) != 1 {
		t.Errorf("expected status filter on the tender index only, got %+v", reqs[0].Filter)
	}
	if reqs[1].Filter != nil {
		t.Errorf("mda index must not carry tender filters, got %+v", reqs[1].Filter)
	}
}

func TestSnippetPreservesRuneBoundaries(t *testing.T) {
	long := strings.Repeat("a", 159) + "héllo"
	got := snippet(long)
	if !utf8.ValidString(got) {
		t.Errorf("snippet split a rune: %q", got[len(got)-8:])
	}
}

func TestPaginateClampsNegativeOffset(t *testing.T) {
	results := []Result{{ID: "1"}, {ID: "2"}}
	got := paginate(results, -3, 1)
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("expected first page from clamped offset, got %+v", got)
	}
}

func TestServiceNeverReturnsNilResults(t *testing.T) {
	svc := NewService(nil, NewLocal(seedStore(t)))

	resp := svc.Search(Query{Text: "no-such-term-anywhere"})
	if resp.Results == nil {
		t.Fatal("results must be non-nil")
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected no hits, got %d", len(resp.Results))
	}
}
