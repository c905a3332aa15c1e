// Package view derives everything a collaboration screen needs from a live
// note snapshot: filtered and sorted display rows, grouping, tab counts,
// poll tallies, and the per-user activity table. Derivation is pure and
// recomputes from scratch on every snapshot, so there is no merge state to
// get out of sync.
package view

import (
	"math"
	"sort"

	"huddle/api/internal/live"
)

// Filter selects which slice of the note list a screen shows.
type Filter string

const (
	FilterMine     Filter = "mine"
	FilterInbox    Filter = "inbox"
	FilterAll      Filter = "all"
	FilterArchived Filter = "archived"
)

// ValidFilter reports whether value names a known filter.
func ValidFilter(value string) bool {
	switch Filter(value) {
	case FilterMine, FilterInbox, FilterAll, FilterArchived:
		return true
	}
	return false
}

// SortOrder selects how top-level rows are ordered.
type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortOldest  SortOrder = "oldest"
	SortUpvotes SortOrder = "upvotes"
)

// ValidSortOrder reports whether value names a known sort order.
func ValidSortOrder(value string) bool {
	switch SortOrder(value) {
	case SortNewest, SortOldest, SortUpvotes:
		return true
	}
	return false
}

// UIState is the ephemeral per-screen state passed into derivation. It is
// view state, not domain data: expand toggles, filter selection, and the
// note a response editor is currently open on.
type UIState struct {
	Filter         Filter
	Sort           SortOrder
	SelectedTypes  map[live.NoteType]bool
	SeenTypes      map[live.NoteType]bool
	ExpandedGroups map[string]bool
	RespondingTo   string
}

// NewUIState returns the initial screen state: All filter, newest first,
// every type except Host note pre-selected.
func NewUIState() UIState {
	selected := make(map[live.NoteType]bool)
	seen := make(map[live.NoteType]bool)
	for _, t := range live.AllNoteTypes() {
		if t == live.TypeHostNote {
			continue
		}
		selected[t] = true
		seen[t] = true
	}
	return UIState{
		Filter:         FilterAll,
		Sort:           SortNewest,
		SelectedTypes:  selected,
		SeenTypes:      seen,
		ExpandedGroups: make(map[string]bool),
	}
}

// Row is one rendered line of the display list. Grouped children carry
// Indent 1 and sit directly below their parent.
type Row struct {
	Note       live.Note `json:"note"`
	Grouped    bool      `json:"grouped"`
	Indent     int       `json:"indent"`
	ChildCount int       `json:"childCount"`
	Expanded   bool      `json:"expanded"`
}

// TabCounts feeds the filter-tab labels. Both counts ignore the type
// selection so the labels stay honest while types are toggled off.
type TabCounts struct {
	Inbox    int `json:"inbox"`
	Archived int `json:"archived"`
}

// OptionTally is one poll option's result.
type OptionTally struct {
	Option  string `json:"option"`
	Votes   int    `json:"votes"`
	Percent int    `json:"percent"`
}

// Model is the full derived view for one snapshot.
type Model struct {
	Rows          []Row                    `json:"rows"`
	Tabs          TabCounts                `json:"tabs"`
	SelectedTypes []live.NoteType          `json:"selectedTypes"`
	PollTallies   map[string][]OptionTally `json:"pollTallies"`
	Activity      []UserActivity           `json:"activity"`
}

// Derive computes the view model for one snapshot. The returned UIState is
// the input state with newly-seen note types auto-selected; the input is
// never mutated.
func Derive(notes []live.Note, collab *live.Collaboration, roster []live.Participant, currentUserID string, state UIState) (Model, UIState) {
	state = autoSelectTypes(notes, state)

	index := buildGroupIndex(notes)
	filtered := applyFilter(notes, currentUserID, state, index)
	sorted := applySort(filtered, state)

	byID := make(map[string]live.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	rows := make([]Row, 0, len(sorted))
	for _, note := range sorted {
		if index.childSet[note.ID] && note.ID != state.RespondingTo {
			continue
		}
		childIDs := index.children[note.ID]
		expanded := state.ExpandedGroups[note.ID]
		rows = append(rows, Row{
			Note:       note,
			ChildCount: len(childIDs),
			Expanded:   expanded,
		})
		if !expanded {
			continue
		}
		for _, childID := range childIDs {
			child, ok := byID[childID]
			if !ok {
				continue
			}
			rows = append(rows, Row{Note: child, Grouped: true, Indent: 1})
		}
	}

	return Model{
		Rows:          rows,
		Tabs:          countTabs(notes, currentUserID, state.RespondingTo, index),
		SelectedTypes: selectedTypeList(state),
		PollTallies:   tallyPolls(notes),
		Activity:      AggregateActivity(notes, roster, collab),
	}, state
}

// autoSelectTypes adds any note type appearing for the first time to the
// selected set. The addition is monotonic: the user can deselect afterwards
// and the type stays marked as seen.
func autoSelectTypes(notes []live.Note, state UIState) UIState {
	pending := make(map[live.NoteType]bool)
	for _, note := range notes {
		if !state.SeenTypes[note.Type] {
			pending[note.Type] = true
		}
	}
	if len(pending) == 0 {
		return state
	}
	selected := make(map[live.NoteType]bool, len(state.SelectedTypes)+len(pending))
	for t, on := range state.SelectedTypes {
		selected[t] = on
	}
	seen := make(map[live.NoteType]bool, len(state.SeenTypes))
	for t := range state.SeenTypes {
		seen[t] = true
	}
	for t := range pending {
		selected[t] = true
		seen[t] = true
	}
	state.SelectedTypes = selected
	state.SeenTypes = seen
	return state
}

type groupIndex struct {
	children map[string][]string
	childSet map[string]bool
}

// buildGroupIndex scans groupedUnder references into a one-level
// parent/child index. A reference is honored only when the parent exists,
// is not the note itself, and is not grouped in turn; anything else
// (dangling ids, self references, cycles) degrades to ungrouped.
func buildGroupIndex(notes []live.Note) groupIndex {
	byID := make(map[string]live.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}
	index := groupIndex{
		children: make(map[string][]string),
		childSet: make(map[string]bool),
	}
	for _, n := range notes {
		parentID := n.GroupedUnder
		if parentID == "" || parentID == n.ID {
			continue
		}
		parent, ok := byID[parentID]
		if !ok || parent.GroupedUnder != "" {
			continue
		}
		index.children[parentID] = append(index.children[parentID], n.ID)
		index.childSet[n.ID] = true
	}
	return index
}

// Interacted reports whether the user has already engaged with the note:
// a non-empty vote (or a closed poll) for polls, any reaction otherwise.
func Interacted(note live.Note, userID string) bool {
	if note.Type == live.TypePoll {
		return len(note.PollVotes[userID]) > 0 || note.PollClosed
	}
	_, ok := note.Reactions[userID]
	return ok
}

// inInbox applies every inbox predicate except the type selection.
func inInbox(note live.Note, userID, respondingTo string, index groupIndex) bool {
	if note.CreatedBy == userID && note.Type != live.TypePoll {
		return false
	}
	if Interacted(note, userID) {
		return false
	}
	if note.Archived || note.MarkedDuplicate || note.Type == live.TypeHostNote {
		return false
	}
	if index.childSet[note.ID] && note.ID != respondingTo {
		return false
	}
	return true
}

func applyFilter(notes []live.Note, userID string, state UIState, index groupIndex) []live.Note {
	out := make([]live.Note, 0, len(notes))
	for _, note := range notes {
		switch state.Filter {
		case FilterMine:
			if note.CreatedBy == userID && !note.Archived && state.SelectedTypes[note.Type] {
				out = append(out, note)
			}
		case FilterInbox:
			if inInbox(note, userID, state.RespondingTo, index) && state.SelectedTypes[note.Type] {
				out = append(out, note)
			}
		case FilterArchived:
			if note.Archived {
				out = append(out, note)
			}
		default:
			if !note.Archived && state.SelectedTypes[note.Type] {
				out = append(out, note)
			}
		}
	}
	return out
}

// applySort orders the filtered list. Input order is arrival order; the
// inbox always reads oldest-first so unhandled notes surface in sequence.
func applySort(notes []live.Note, state UIState) []live.Note {
	out := make([]live.Note, len(notes))
	copy(out, notes)

	order := state.Sort
	if state.Filter == FilterInbox {
		order = SortOldest
	}
	switch order {
	case SortOldest:
	case SortUpvotes:
		sort.SliceStable(out, func(i, j int) bool {
			return upvotes(out[i]) > upvotes(out[j])
		})
	default:
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func upvotes(note live.Note) int {
	count := 0
	for _, kind := range note.Reactions {
		if kind == live.ReactionAgree {
			count++
		}
	}
	return count
}

func countTabs(notes []live.Note, userID, respondingTo string, index groupIndex) TabCounts {
	var tabs TabCounts
	for _, note := range notes {
		if inInbox(note, userID, respondingTo, index) {
			tabs.Inbox++
		}
		if note.Archived {
			tabs.Archived++
		}
	}
	return tabs
}

func selectedTypeList(state UIState) []live.NoteType {
	out := make([]live.NoteType, 0, len(state.SelectedTypes))
	for _, t := range live.AllNoteTypes() {
		if state.SelectedTypes[t] {
			out = append(out, t)
		}
	}
	return out
}

// tallyPolls computes per-option results for every poll note that has
// options. Percent is count over distinct voters rounded to the nearest
// integer, and 0 when nobody has voted.
func tallyPolls(notes []live.Note) map[string][]OptionTally {
	tallies := make(map[string][]OptionTally)
	for _, note := range notes {
		if note.Type != live.TypePoll || len(note.PollOptions) == 0 {
			continue
		}
		tallies[note.ID] = TallyPoll(note)
	}
	return tallies
}

// TallyPoll computes the option tallies for one poll note.
func TallyPoll(note live.Note) []OptionTally {
	voters := 0
	for _, vote := range note.PollVotes {
		if len(vote) > 0 {
			voters++
		}
	}
	out := make([]OptionTally, len(note.PollOptions))
	for i, option := range note.PollOptions {
		count := 0
		for _, vote := range note.PollVotes {
			if vote.Contains(i) {
				count++
			}
		}
		percent := 0
		if voters > 0 {
			percent = int(math.Round(float64(count) / float64(voters) * 100))
		}
		out[i] = OptionTally{Option: option, Votes: count, Percent: percent}
	}
	return out
}
