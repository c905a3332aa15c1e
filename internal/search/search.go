// Package search provides full-text search over notes: Meilisearch when
// reachable, a plain-text scan of the live snapshot otherwise.
package search

// NoteRecord is the data indexed for one note. Content is plain text with
// markup already stripped.
type NoteRecord struct {
	ID              string `json:"id"`
	CollaborationID string `json:"collaborationId"`
	Type            string `json:"type"`
	Content         string `json:"content"`
	CreatorName     string `json:"creatorName"`
}

// Query describes a search request scoped to one collaboration.
type Query struct {
	Text            string
	CollaborationID string
	FilterType      string // empty = all note types
	Limit           int
	Offset          int
}

// Result is a single hit returned to the caller.
type Result struct {
	ID              string `json:"id"`
	CollaborationID string `json:"collaborationId"`
	Type            string `json:"type"`
	Snippet         string `json:"snippet"`
	CreatorName     string `json:"creatorName"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a note search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}
