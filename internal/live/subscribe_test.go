package live

import (
	"context"
	"testing"
	"time"
)

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		panic("unreachable")
	}
}

func TestSubscribeCollaborationDeliversInitialSnapshot(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.CreateCollaboration(ctx, testCollaboration("col_1")); err != nil {
		t.Fatalf("CreateCollaboration failed: %v", err)
	}

	snapshots := make(chan CollabSnapshot, 8)
	cancel, err := store.SubscribeCollaboration("col_1", func(snap CollabSnapshot) {
		snapshots <- snap
	})
	if err != nil {
		t.Fatalf("SubscribeCollaboration failed: %v", err)
	}
	defer cancel()

	first := waitFor(t, snapshots)
	if first.State != CollabFound {
		t.Fatalf("initial state = %v, want CollabFound", first.State)
	}
	if first.Record == nil || first.Record.Title != "Sprint retro" {
		t.Errorf("unexpected initial record: %+v", first.Record)
	}
}

func TestSubscribeCollaborationReportsMissingRecord(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	snapshots := make(chan CollabSnapshot, 8)
	cancel, err := store.SubscribeCollaboration("col_missing", func(snap CollabSnapshot) {
		snapshots <- snap
	})
	if err != nil {
		t.Fatalf("SubscribeCollaboration failed: %v", err)
	}
	defer cancel()

	first := waitFor(t, snapshots)
	if first.State != CollabNotFound {
		t.Errorf("state = %v, want CollabNotFound", first.State)
	}
	if first.Record != nil {
		t.Errorf("missing record should carry no payload, got %+v", first.Record)
	}
}

func TestSubscribeCollaborationRedeliversOnChange(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.CreateCollaboration(ctx, testCollaboration("col_1")); err != nil {
		t.Fatalf("CreateCollaboration failed: %v", err)
	}

	snapshots := make(chan CollabSnapshot, 8)
	cancel, err := store.SubscribeCollaboration("col_1", func(snap CollabSnapshot) {
		snapshots <- snap
	})
	if err != nil {
		t.Fatalf("SubscribeCollaboration failed: %v", err)
	}
	defer cancel()

	waitFor(t, snapshots)

	err = store.UpdateCollaboration(ctx, "col_1", func(c *Collaboration) error {
		c.Paused = true
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateCollaboration failed: %v", err)
	}

	next := waitFor(t, snapshots)
	if next.State != CollabFound || next.Record == nil || !next.Record.Paused {
		t.Errorf("expected paused snapshot, got %+v", next.Record)
	}
}

func TestSubscribeNotesDeliversFullList(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	first := Note{ID: "note_a", CollaborationID: "col_1", Type: TypeQuestion, CreatedBy: "usr_1"}
	if err := store.AppendNote(ctx, first); err != nil {
		t.Fatalf("AppendNote failed: %v", err)
	}

	lists := make(chan []Note, 8)
	cancel, err := store.SubscribeNotes("col_1", func(notes []Note) {
		lists <- notes
	})
	if err != nil {
		t.Fatalf("SubscribeNotes failed: %v", err)
	}
	defer cancel()

	initial := waitFor(t, lists)
	if len(initial) != 1 || initial[0].ID != "note_a" {
		t.Fatalf("unexpected initial list: %+v", initial)
	}

	second := Note{ID: "note_b", CollaborationID: "col_1", Type: TypeStatement, CreatedBy: "usr_2"}
	if err := store.AppendNote(ctx, second); err != nil {
		t.Fatalf("AppendNote failed: %v", err)
	}

	updated := waitFor(t, lists)
	for len(updated) < 2 {
		updated = waitFor(t, lists)
	}
	if updated[0].ID != "note_a" || updated[1].ID != "note_b" {
		t.Errorf("unexpected updated list: %+v", updated)
	}
}

func TestCancelStopsDeliveryAndIsIdempotent(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.CreateCollaboration(ctx, testCollaboration("col_1")); err != nil {
		t.Fatalf("CreateCollaboration failed: %v", err)
	}

	snapshots := make(chan CollabSnapshot, 8)
	cancel, err := store.SubscribeCollaboration("col_1", func(snap CollabSnapshot) {
		snapshots <- snap
	})
	if err != nil {
		t.Fatalf("SubscribeCollaboration failed: %v", err)
	}

	waitFor(t, snapshots)

	cancel()
	cancel()

	err = store.UpdateCollaboration(ctx, "col_1", func(c *Collaboration) error {
		c.Title = "Renamed"
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateCollaboration failed: %v", err)
	}

	select {
	case snap := <-snapshots:
		// A snapshot already in flight when cancel ran is tolerated, but it
		// must predate the rename.
		if snap.Record != nil && snap.Record.Title == "Renamed" {
			t.Errorf("received snapshot after cancel: %+v", snap.Record)
		}
	case <-time.After(300 * time.Millisecond):
	}
}
