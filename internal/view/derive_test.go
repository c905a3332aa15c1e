package view

import (
	"testing"
	"time"

	"huddle/api/internal/live"
)

var testBase = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func note(id string, t live.NoteType, createdBy string, offset int) live.Note {
	return live.Note{
		ID:        id,
		Type:      t,
		Content:   "<p>" + id + "</p>",
		CreatedBy: createdBy,
		CreatedAt: testBase.Add(time.Duration(offset) * time.Minute),
	}
}

func sampleNotes() []live.Note {
	question := note("n1", live.TypeQuestion, "usr_other", 0)
	statement := note("n2", live.TypeStatement, "usr_me", 1)
	reacted := note("n3", live.TypeRecommendation, "usr_other", 2)
	reacted.Reactions = map[string]live.ReactionKind{"usr_me": live.ReactionAgree}
	archived := note("n4", live.TypeStatement, "usr_other", 3)
	archived.Archived = true
	hostNote := note("n5", live.TypeHostNote, "usr_host", 4)
	poll := note("n6", live.TypePoll, "usr_me", 5)
	poll.PollOptions = []string{"Red", "Blue"}
	return []live.Note{question, statement, reacted, archived, hostNote, poll}
}

func rowIDs(rows []Row) []string {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.Note.ID
	}
	return ids
}

func TestInboxCountMatchesInboxFilterWithoutTypeSelection(t *testing.T) {
	notes := sampleNotes()
	state := NewUIState()
	state.Filter = FilterInbox
	// All types selected, including Host note, so the filtered length and
	// the count predicate agree exactly.
	for _, nt := range live.AllNoteTypes() {
		state.SelectedTypes[nt] = true
	}

	model, _ := Derive(notes, nil, nil, "usr_me", state)
	if model.Tabs.Inbox != len(model.Rows) {
		t.Errorf("inbox count %d != filtered rows %d", model.Tabs.Inbox, len(model.Rows))
	}
	// n1 (other's question, untouched) and n6 (own poll, unvoted) qualify.
	if model.Tabs.Inbox != 2 {
		t.Errorf("inbox count = %d, want 2", model.Tabs.Inbox)
	}
}

func TestMineIsSubsetOfAll(t *testing.T) {
	notes := sampleNotes()

	mineState := NewUIState()
	mineState.Filter = FilterMine
	mine, _ := Derive(notes, nil, nil, "usr_me", mineState)

	allState := NewUIState()
	allState.Filter = FilterAll
	all, _ := Derive(notes, nil, nil, "usr_me", allState)

	inAll := make(map[string]bool)
	for _, row := range all.Rows {
		inAll[row.Note.ID] = true
	}
	for _, row := range mine.Rows {
		if !inAll[row.Note.ID] {
			t.Errorf("note %s in Mine but missing from All", row.Note.ID)
		}
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	notes := sampleNotes()
	state := NewUIState()
	state.Sort = SortUpvotes

	first, firstState := Derive(notes, nil, nil, "usr_me", state)
	second, _ := Derive(notes, nil, nil, "usr_me", firstState)

	a, b := rowIDs(first.Rows), rowIDs(second.Rows)
	if len(a) != len(b) {
		t.Fatalf("row counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("position %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestGroupedChildHiddenWhenCollapsed(t *testing.T) {
	parent := note("parent", live.TypeQuestion, "usr_other", 0)
	child := note("child", live.TypeQuestion, "usr_other", 1)
	child.GroupedUnder = "parent"
	notes := []live.Note{parent, child}

	state := NewUIState()
	state.Sort = SortOldest

	model, _ := Derive(notes, nil, nil, "usr_me", state)
	ids := rowIDs(model.Rows)
	if len(ids) != 1 || ids[0] != "parent" {
		t.Fatalf("collapsed rows = %v, want [parent]", ids)
	}
	if model.Rows[0].ChildCount != 1 || model.Rows[0].Expanded {
		t.Errorf("parent row = %+v", model.Rows[0])
	}

	state.ExpandedGroups["parent"] = true
	model, _ = Derive(notes, nil, nil, "usr_me", state)
	ids = rowIDs(model.Rows)
	if len(ids) != 2 || ids[0] != "parent" || ids[1] != "child" {
		t.Fatalf("expanded rows = %v, want [parent child]", ids)
	}
	if !model.Rows[1].Grouped || model.Rows[1].Indent != 1 {
		t.Errorf("child row = %+v", model.Rows[1])
	}
}

func TestGroupingToleratesDanglingAndCyclicReferences(t *testing.T) {
	dangling := note("n1", live.TypeQuestion, "usr_other", 0)
	dangling.GroupedUnder = "gone"
	cycleA := note("n2", live.TypeQuestion, "usr_other", 1)
	cycleA.GroupedUnder = "n3"
	cycleB := note("n3", live.TypeQuestion, "usr_other", 2)
	cycleB.GroupedUnder = "n2"
	selfRef := note("n4", live.TypeQuestion, "usr_other", 3)
	selfRef.GroupedUnder = "n4"
	notes := []live.Note{dangling, cycleA, cycleB, selfRef}

	state := NewUIState()
	state.Sort = SortOldest

	model, _ := Derive(notes, nil, nil, "usr_me", state)
	ids := rowIDs(model.Rows)
	if len(ids) != 4 {
		t.Fatalf("rows = %v, want all four top-level", ids)
	}
	for _, row := range model.Rows {
		if row.Grouped {
			t.Errorf("note %s rendered grouped", row.Note.ID)
		}
	}
}

func TestRespondingToChildStaysVisible(t *testing.T) {
	parent := note("parent", live.TypeQuestion, "usr_other", 0)
	child := note("child", live.TypeQuestion, "usr_other", 1)
	child.GroupedUnder = "parent"
	notes := []live.Note{parent, child}

	state := NewUIState()
	state.Sort = SortOldest
	state.RespondingTo = "child"

	model, _ := Derive(notes, nil, nil, "usr_me", state)
	ids := rowIDs(model.Rows)
	if len(ids) != 2 || ids[1] != "child" {
		t.Fatalf("rows = %v, want child visible while responding", ids)
	}
}

func TestPollTally(t *testing.T) {
	poll := note("poll", live.TypePoll, "usr_host", 0)
	poll.PollOptions = []string{"Red", "Blue"}
	poll.PollVotes = map[string]live.VoteValue{
		"u1": {0},
		"u2": {1},
		"u3": {0},
	}

	tally := TallyPoll(poll)
	if len(tally) != 2 {
		t.Fatalf("tally length = %d", len(tally))
	}
	if tally[0].Votes != 2 || tally[0].Percent != 67 {
		t.Errorf("Red = %+v, want 2 votes 67%%", tally[0])
	}
	if tally[1].Votes != 1 || tally[1].Percent != 33 {
		t.Errorf("Blue = %+v, want 1 vote 33%%", tally[1])
	}
}

func TestPollTallyNoVoters(t *testing.T) {
	poll := note("poll", live.TypePoll, "usr_host", 0)
	poll.PollOptions = []string{"Red", "Blue"}
	poll.PollVotes = map[string]live.VoteValue{"u1": {}}

	for _, entry := range TallyPoll(poll) {
		if entry.Votes != 0 || entry.Percent != 0 {
			t.Errorf("empty poll tally = %+v", entry)
		}
	}
}

func TestUpvoteSortIsStable(t *testing.T) {
	first := note("n1", live.TypeQuestion, "usr_other", 0)
	first.Reactions = map[string]live.ReactionKind{"u1": live.ReactionAgree}
	second := note("n2", live.TypeQuestion, "usr_other", 1)
	second.Reactions = map[string]live.ReactionKind{"u2": live.ReactionAgree}
	top := note("n3", live.TypeQuestion, "usr_other", 2)
	top.Reactions = map[string]live.ReactionKind{
		"u1": live.ReactionAgree,
		"u2": live.ReactionAgree,
	}
	notes := []live.Note{first, second, top}

	state := NewUIState()
	state.Sort = SortUpvotes

	model, _ := Derive(notes, nil, nil, "usr_me", state)
	ids := rowIDs(model.Rows)
	want := []string{"n3", "n1", "n2"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("rows = %v, want %v", ids, want)
		}
	}
}

func TestInboxForcesOldestFirst(t *testing.T) {
	older := note("older", live.TypeQuestion, "usr_other", 0)
	newer := note("newer", live.TypeQuestion, "usr_other", 1)
	notes := []live.Note{older, newer}

	state := NewUIState()
	state.Filter = FilterInbox
	state.Sort = SortNewest

	model, _ := Derive(notes, nil, nil, "usr_me", state)
	ids := rowIDs(model.Rows)
	if len(ids) != 2 || ids[0] != "older" {
		t.Errorf("inbox rows = %v, want oldest first", ids)
	}
}

func TestInteractionRule(t *testing.T) {
	poll := note("poll", live.TypePoll, "usr_other", 0)
	poll.PollOptions = []string{"Red", "Blue"}
	if Interacted(poll, "usr_me") {
		t.Error("unvoted open poll counted as interacted")
	}
	poll.PollVotes = map[string]live.VoteValue{"usr_me": {0}}
	if !Interacted(poll, "usr_me") {
		t.Error("voted poll not counted as interacted")
	}
	poll.PollVotes = nil
	poll.PollClosed = true
	if !Interacted(poll, "usr_me") {
		t.Error("closed poll not counted as interacted")
	}

	plain := note("n1", live.TypeQuestion, "usr_other", 0)
	if Interacted(plain, "usr_me") {
		t.Error("untouched note counted as interacted")
	}
	plain.Reactions = map[string]live.ReactionKind{"usr_me": live.ReactionMarkRead}
	if !Interacted(plain, "usr_me") {
		t.Error("reacted note not counted as interacted")
	}
}

func TestAutoSelectedTypesMonotonic(t *testing.T) {
	state := NewUIState()
	if state.SelectedTypes[live.TypeHostNote] {
		t.Fatal("Host note selected in initial state")
	}

	hostNote := note("n1", live.TypeHostNote, "usr_host", 0)
	_, next := Derive([]live.Note{hostNote}, nil, nil, "usr_me", state)
	if !next.SelectedTypes[live.TypeHostNote] {
		t.Fatal("newly-seen type not auto-selected")
	}

	// A manual deselect sticks: the type is already seen, so the next
	// snapshot must not re-add it.
	next.SelectedTypes[live.TypeHostNote] = false
	_, final := Derive([]live.Note{hostNote}, nil, nil, "usr_me", next)
	if final.SelectedTypes[live.TypeHostNote] {
		t.Error("deselected type re-added on a later snapshot")
	}
}

func TestTabCountsIgnoreTypeSelection(t *testing.T) {
	notes := sampleNotes()
	state := NewUIState()
	for _, nt := range live.AllNoteTypes() {
		state.SelectedTypes[nt] = false
	}

	model, _ := Derive(notes, nil, nil, "usr_me", state)
	if model.Tabs.Inbox != 2 {
		t.Errorf("inbox count = %d, want 2 with all types deselected", model.Tabs.Inbox)
	}
	if model.Tabs.Archived != 1 {
		t.Errorf("archived count = %d, want 1", model.Tabs.Archived)
	}
}

func TestDeriveToleratesEmptyInput(t *testing.T) {
	model, _ := Derive(nil, nil, nil, "usr_me", NewUIState())
	if len(model.Rows) != 0 || model.Tabs.Inbox != 0 || model.Tabs.Archived != 0 {
		t.Errorf("unexpected model for empty input: %+v", model)
	}
}
