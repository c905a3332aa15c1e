package live

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := Open("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to open live store: %v", err)
	}
	return store, s
}

func testCollaboration(id string) Collaboration {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return Collaboration{
		ID:               id,
		Title:            "Sprint retro",
		Prompt:           "<p>What went well?</p>",
		PromptUpdatedAt:  started,
		HostID:           "usr_host",
		HostName:         "Avery",
		StartedAt:        started,
		Active:           true,
		AllowedNoteTypes: AllNoteTypes(),
		ShowAuthorNames:  true,
	}
}

func TestCollaborationRoundTrip(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.CreateCollaboration(ctx, testCollaboration("col_1")); err != nil {
		t.Fatalf("CreateCollaboration failed: %v", err)
	}

	got, err := store.GetCollaboration(ctx, "col_1")
	if err != nil {
		t.Fatalf("GetCollaboration failed: %v", err)
	}
	if got.Title != "Sprint retro" || got.HostID != "usr_host" || !got.Active {
		t.Errorf("unexpected record: %+v", got)
	}

	if _, err := store.GetCollaboration(ctx, "col_missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCollaborationAppendsPromptHistory(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.CreateCollaboration(ctx, testCollaboration("col_1")); err != nil {
		t.Fatalf("CreateCollaboration failed: %v", err)
	}

	editedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := store.UpdateCollaboration(ctx, "col_1", func(c *Collaboration) error {
		c.PromptHistory = append(c.PromptHistory, PromptVersion{Content: c.Prompt, EditedAt: c.PromptUpdatedAt})
		c.Prompt = "<p>What should we change?</p>"
		c.PromptUpdatedAt = editedAt
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateCollaboration failed: %v", err)
	}

	got, err := store.GetCollaboration(ctx, "col_1")
	if err != nil {
		t.Fatalf("GetCollaboration failed: %v", err)
	}
	if len(got.PromptHistory) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(got.PromptHistory))
	}
	if got.PromptHistory[0].Content != "<p>What went well?</p>" {
		t.Errorf("history content = %q", got.PromptHistory[0].Content)
	}
	if !got.PromptUpdatedAt.Equal(editedAt) {
		t.Errorf("prompt updated at = %v", got.PromptUpdatedAt)
	}
}

func TestNotesKeepArrivalOrder(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	for i, id := range []string{"note_a", "note_b", "note_c"} {
		note := Note{
			ID:              id,
			CollaborationID: "col_1",
			Type:            TypeStatement,
			Content:         "<p>" + id + "</p>",
			CreatedBy:       "usr_1",
			CreatorName:     "Jamie",
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.AppendNote(ctx, note); err != nil {
			t.Fatalf("AppendNote(%s) failed: %v", id, err)
		}
	}

	notes, err := store.ListNotes(ctx, "col_1")
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(notes))
	}
	for i, want := range []string{"note_a", "note_b", "note_c"} {
		if notes[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, notes[i].ID, want)
		}
	}
}

func TestUpdateNoteMergesReactions(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	note := Note{ID: "note_a", CollaborationID: "col_1", Type: TypeQuestion, CreatedBy: "usr_1"}
	if err := store.AppendNote(ctx, note); err != nil {
		t.Fatalf("AppendNote failed: %v", err)
	}

	err := store.UpdateNote(ctx, "col_1", "note_a", func(n *Note) error {
		if n.Reactions == nil {
			n.Reactions = make(map[string]ReactionKind)
		}
		n.Reactions["usr_2"] = ReactionAgree
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateNote failed: %v", err)
	}

	got, err := store.GetNote(ctx, "col_1", "note_a")
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}
	if got.Reactions["usr_2"] != ReactionAgree {
		t.Errorf("reaction not persisted: %+v", got.Reactions)
	}

	if err := store.UpdateNote(ctx, "col_1", "note_missing", func(n *Note) error { return nil }); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestParticipantsSortedByRequestTime(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := []Participant{
		{UserID: "usr_c", DisplayName: "Casey", Status: ParticipantPending, RequestedAt: base.Add(2 * time.Minute)},
		{UserID: "usr_a", DisplayName: "Alex", Status: ParticipantApproved, RequestedAt: base},
		{UserID: "usr_b", DisplayName: "Blair", Status: ParticipantPending, RequestedAt: base.Add(time.Minute)},
	}
	for _, p := range entries {
		if err := store.UpsertParticipant(ctx, "col_1", p); err != nil {
			t.Fatalf("UpsertParticipant(%s) failed: %v", p.UserID, err)
		}
	}

	roster, err := store.ListParticipants(ctx, "col_1")
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if len(roster) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(roster))
	}
	for i, want := range []string{"usr_a", "usr_b", "usr_c"} {
		if roster[i].UserID != want {
			t.Errorf("position %d = %s, want %s", i, roster[i].UserID, want)
		}
	}
}

func TestVoteValueDecodesBothShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []int
	}{
		{name: "single index", raw: `{"u1": 0}`, want: []int{0}},
		{name: "index array", raw: `{"u1": [0, 2]}`, want: []int{0, 2}},
		{name: "empty array", raw: `{"u1": []}`, want: []int{}},
		{name: "null vote", raw: `{"u1": null}`, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var votes map[string]VoteValue
			if err := json.Unmarshal([]byte(tt.raw), &votes); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			got := votes["u1"]
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestVoteValueSingleEncodesAsBareIndex(t *testing.T) {
	payload, err := json.Marshal(map[string]VoteValue{"u1": {1}})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(payload) != `{"u1":1}` {
		t.Errorf("single vote encoded as %s", payload)
	}

	payload, err = json.Marshal(map[string]VoteValue{"u1": {0, 2}})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(payload) != `{"u1":[0,2]}` {
		t.Errorf("multi vote encoded as %s", payload)
	}
}
