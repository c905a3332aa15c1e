package search

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"huddle/api/internal/live"
)

func seedNotes(t *testing.T) *live.Store {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := live.Open("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to open live store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	notes := []live.Note{
		{
			ID:              "note_a",
			CollaborationID: "col_1",
			Type:            live.TypeQuestion,
			Content:         "<p>Why did the <strong>deploy</strong> fail?</p>",
			CreatedBy:       "usr_1",
			CreatorName:     "Jamie",
			CreatedAt:       base,
		},
		{
			ID:              "note_b",
			CollaborationID: "col_1",
			Type:            live.TypeActionItem,
			Content:         "<p>Fix the deploy pipeline</p>",
			CreatedBy:       "usr_2",
			CreatorName:     "Blair",
			CreatedAt:       base.Add(time.Minute),
		},
		{
			ID:              "note_c",
			CollaborationID: "col_1",
			Type:            live.TypeStatement,
			Content:         "<p>Docs look good</p>",
			CreatedBy:       "usr_1",
			CreatorName:     "Jamie",
			CreatedAt:       base.Add(2 * time.Minute),
		},
	}
	for _, n := range notes {
		if err := store.AppendNote(ctx, n); err != nil {
			t.Fatalf("AppendNote(%s) failed: %v", n.ID, err)
		}
	}
	return store
}

func TestScanMatchesPlainText(t *testing.T) {
	scan := NewScan(seedNotes(t))

	results, total, err := scan.Search(Query{Text: "deploy", CollaborationID: "col_1"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 2 || len(results) != 2 {
		t.Fatalf("total = %d, results = %d, want 2", total, len(results))
	}
	if results[0].ID != "note_a" || results[1].ID != "note_b" {
		t.Errorf("results = %v, %v", results[0].ID, results[1].ID)
	}
	// Markup never leaks into snippets.
	if results[0].Snippet != "Why did the deploy fail?" {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
}

func TestScanFiltersByType(t *testing.T) {
	scan := NewScan(seedNotes(t))

	results, total, err := scan.Search(Query{
		Text:            "deploy",
		CollaborationID: "col_1",
		FilterType:      string(live.TypeActionItem),
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 1 || len(results) != 1 || results[0].ID != "note_b" {
		t.Errorf("results = %+v", results)
	}
}

func TestScanMatchesCreatorName(t *testing.T) {
	scan := NewScan(seedNotes(t))

	_, total, err := scan.Search(Query{Text: "blair", CollaborationID: "col_1"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestScanPagination(t *testing.T) {
	scan := NewScan(seedNotes(t))

	results, total, err := scan.Search(Query{CollaborationID: "col_1", Limit: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 3 || len(results) != 2 {
		t.Fatalf("total = %d, page = %d", total, len(results))
	}

	results, _, err = scan.Search(Query{CollaborationID: "col_1", Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "note_c" {
		t.Errorf("second page = %+v", results)
	}

	results, _, err = scan.Search(Query{CollaborationID: "col_1", Offset: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("past-end page = %+v", results)
	}
}

func TestServiceFallsBackWithoutMeilisearch(t *testing.T) {
	svc := NewService(nil, NewScan(seedNotes(t)))

	resp := svc.Search(Query{Text: "docs", CollaborationID: "col_1"})
	if resp.Total != 1 || len(resp.Results) != 1 || resp.Results[0].ID != "note_c" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Query != "docs" {
		t.Errorf("query echo = %q", resp.Query)
	}
}
