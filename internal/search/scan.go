package search

import (
	"context"
	"strings"
	"time"

	"huddle/api/internal/live"
	"huddle/api/internal/report"
)

// Scan is the fallback backend: a case-insensitive substring match over the
// collaboration's live note snapshot. Slower than an index but always
// consistent with what participants currently see.
type Scan struct {
	store *live.Store
}

// NewScan creates the snapshot-scan backend.
func NewScan(store *live.Store) *Scan {
	return &Scan{store: store}
}

// Healthy is true whenever the live store answers pings.
func (s *Scan) Healthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.store.Ping(ctx) == nil
}

// Search scans the note list of the query's collaboration.
func (s *Scan) Search(q Query) ([]Result, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notes, err := s.store.ListNotes(ctx, q.CollaborationID)
	if err != nil {
		return nil, 0, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	var matches []Result
	for _, note := range notes {
		if q.FilterType != "" && string(note.Type) != q.FilterType {
			continue
		}
		text := report.PlainText(note.Content)
		if needle != "" &&
			!strings.Contains(strings.ToLower(text), needle) &&
			!strings.Contains(strings.ToLower(note.CreatorName), needle) {
			continue
		}
		matches = append(matches, Result{
			ID:              note.ID,
			CollaborationID: note.CollaborationID,
			Type:            string(note.Type),
			Snippet:         snippet(text, needle),
			CreatorName:     note.CreatorName,
		})
	}

	total := len(matches)
	if q.Offset >= total {
		return []Result{}, total, nil
	}
	matches = matches[q.Offset:]
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, total, nil
}

// snippet cuts a short window around the first match.
func snippet(text, needle string) string {
	const window = 80
	if len(text) <= window {
		return text
	}
	idx := 0
	if needle != "" {
		if at := strings.Index(strings.ToLower(text), needle); at > window/2 {
			idx = at - window/2
		}
	}
	end := idx + window
	if end > len(text) {
		end = len(text)
	}
	out := text[idx:end]
	if idx > 0 {
		out = "…" + out
	}
	if end < len(text) {
		out += "…"
	}
	return out
}
