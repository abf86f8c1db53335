package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to the
// Postgres title match.
type Service struct {
	meili    *Meili
	fallback Searcher
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, fallback Searcher) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search tries Meilisearch if healthy, otherwise falls back.
func (s *Service) Search(text string, limit int) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(text, limit)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: text}
		}
		log.Printf("search: meilisearch error, falling back: %v", err)
	}

	results, total, err := s.fallback.Search(text, limit)
	if err != nil {
		log.Printf("search: fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: text}
	}
	return Response{Results: nonNil(results), Total: total, Query: text}
}

// IndexVane pushes one vane into the index; ignored without Meilisearch.
func (s *Service) IndexVane(record VaneRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexVane(record); err != nil {
		log.Printf("search: index vane %s: %v", record.ID, err)
	}
}

// IndexVanes bulk-indexes vanes; ignored without Meilisearch.
func (s *Service) IndexVanes(records []VaneRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexVanes(records); err != nil {
		log.Printf("search: bulk index vanes: %v", err)
	}
}

// RemoveVane drops a vane from the index; ignored without Meilisearch.
func (s *Service) RemoveVane(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.DeleteVane(id); err != nil {
		log.Printf("search: delete vane %s: %v", id, err)
	}
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
