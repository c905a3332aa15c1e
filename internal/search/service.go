package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to
// scanning the live snapshot.
type Service struct {
	meili *Meili
	scan  *Scan
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, scan *Scan) *Service {
	return &Service{meili: meili, scan: scan}
}

// Search tries Meilisearch if healthy, otherwise scans the live snapshot.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to snapshot scan: %v", err)
	}

	results, total, err := s.scan.Search(q)
	if err != nil {
		log.Printf("search: snapshot scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexNote pushes a note into Meilisearch, fire-and-forget.
func (s *Service) IndexNote(record NoteRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexNote(record); err != nil {
			log.Printf("search: index note %s: %v", record.ID, err)
		}
	}()
}

// DeleteNote removes a note from Meilisearch, fire-and-forget.
func (s *Service) DeleteNote(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteNote(id); err != nil {
			log.Printf("search: delete note %s: %v", id, err)
		}
	}()
}

// ReindexCollaboration bulk-pushes a collaboration's notes, fire-and-forget.
func (s *Service) ReindexCollaboration(records []NoteRecord) {
	if s.meili == nil || !s.meili.Healthy() || len(records) == 0 {
		return
	}
	go func() {
		if err := s.meili.IndexNotes(records); err != nil {
			log.Printf("search: reindex collaboration: %v", err)
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
