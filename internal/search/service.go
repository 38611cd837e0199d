package search

import (
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to a
// linear scan over the local store.
type Service struct {
	meili *Meili
	local *Local
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, local *Local) *Service {
	return &Service{meili: meili, local: local}
}

// Search tries Meilisearch if healthy, otherwise falls back to the local scan.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to local scan: %v", err)
	}

	results, total, err := s.local.Search(q)
	if err != nil {
		log.Printf("search: local scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexTender indexes a tender (fire-and-forget to Meilisearch).
func (s *Service) IndexTender(t TenderRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTender(t); err != nil {
			log.Printf("search: index tender %s: %v", t.ID, err)
		}
	}()
}

// IndexMDA indexes an MDA (fire-and-forget to Meilisearch).
func (s *Service) IndexMDA(rec MDARecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexMDA(rec); err != nil {
			log.Printf("search: index mda %s: %v", rec.ID, err)
		}
	}()
}

// DeleteMDA removes an MDA from the search index (fire-and-forget).
func (s *Service) DeleteMDA(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteMDA(id); err != nil {
			log.Printf("search: delete mda %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes the full tender and MDA datasets to Meilisearch.
// Called at startup when Meilisearch is healthy.
func (s *Service) ReindexAll(tenders []TenderRecord, mdas []MDARecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	if len(tenders) > 0 {
		if err := s.meili.IndexTenders(tenders); err != nil {
			log.Printf("search: reindex tenders: %v", err)
		}
	}
	if len(mdas) > 0 {
		if err := s.meili.IndexMDAs(mdas); err != nil {
			log.Printf("search: reindex mdas: %v", err)
		}
	}
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
