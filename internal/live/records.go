// Package live is the adapter over the hosted document database that backs
// Huddle: collaboration records, ordered note lists, and participant rosters
// live in Redis as JSON documents, and every write publishes a change signal
// so subscribers can re-read a full replacement snapshot.
package live

import (
	"bytes"
	"encoding/json"
	"time"
)

// NoteType is the fixed enumeration of typed contributions.
type NoteType string

const (
	TypeQuestion             NoteType = "Question"
	TypeStatement            NoteType = "Statement"
	TypeRecommendation       NoteType = "Recommendation"
	TypeRequirement          NoteType = "Requirement"
	TypePositiveFeedback     NoteType = "Positive feedback"
	TypeConstructiveFeedback NoteType = "Constructive feedback"
	TypeActionItem           NoteType = "Action item"
	TypePoll                 NoteType = "Poll"
	TypeHostNote             NoteType = "Host note"
)

// AllNoteTypes returns the enumeration in display order.
func AllNoteTypes() []NoteType {
	return []NoteType{
		TypeQuestion,
		TypeStatement,
		TypeRecommendation,
		TypeRequirement,
		TypePositiveFeedback,
		TypeConstructiveFeedback,
		TypeActionItem,
		TypePoll,
		TypeHostNote,
	}
}

// ValidNoteType reports whether value names a known note type.
func ValidNoteType(value string) bool {
	for _, t := range AllNoteTypes() {
		if string(t) == value {
			return true
		}
	}
	return false
}

// ReactionKind is a lightweight per-user signal on a note or response.
type ReactionKind string

const (
	ReactionAgree    ReactionKind = "agree"
	ReactionDisagree ReactionKind = "disagree"
	ReactionMarkRead ReactionKind = "markRead"
)

// ValidReactionKind reports whether value names a known reaction kind.
func ValidReactionKind(value string) bool {
	switch ReactionKind(value) {
	case ReactionAgree, ReactionDisagree, ReactionMarkRead:
		return true
	}
	return false
}

// ParticipantStatus tracks a participant through the waiting-room flow.
type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantApproved ParticipantStatus = "approved"
	ParticipantRevoked  ParticipantStatus = "revoked"
)

// PromptVersion is one entry of the prompt timeline. EditedAt is the moment
// this content became the active prompt.
type PromptVersion struct {
	Content  string    `json:"content"`
	EditedAt time.Time `json:"editedAt"`
}

// Collaboration is the session document. The host is set at creation and
// never changes; the record is never physically deleted.
type Collaboration struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Prompt           string          `json:"prompt"`
	PromptUpdatedAt  time.Time       `json:"promptUpdatedAt"`
	PromptHistory    []PromptVersion `json:"promptHistory,omitempty"`
	HostID           string          `json:"hostId"`
	HostName         string          `json:"hostName"`
	StartedAt        time.Time       `json:"startedAt"`
	Active           bool            `json:"active"`
	Paused           bool            `json:"paused"`
	AllowedNoteTypes []NoteType      `json:"allowedNoteTypes"`
	ShowAuthorNames  bool            `json:"showAuthorNames"`
}

// AllowsType reports whether the host has enabled the given note type.
func (c Collaboration) AllowsType(t NoteType) bool {
	for _, allowed := range c.AllowedNoteTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

// Participant is one roster entry. The host is implicitly approved and is
// never stored as a participant record.
type Participant struct {
	UserID      string            `json:"userId"`
	DisplayName string            `json:"displayName"`
	Email       string            `json:"email,omitempty"`
	Status      ParticipantStatus `json:"status"`
	RequestedAt time.Time         `json:"requestedAt"`
}

// VoteValue is a poll vote as stored by the document database: a bare option
// index for single-choice polls, an array of indices for multiple-choice.
// Both shapes decode into the same slice.
type VoteValue []int

func (v *VoteValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = nil
		return nil
	}
	if trimmed[0] == '[' {
		var indices []int
		if err := json.Unmarshal(trimmed, &indices); err != nil {
			return err
		}
		*v = indices
		return nil
	}
	var single int
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return err
	}
	*v = []int{single}
	return nil
}

func (v VoteValue) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]int(v))
}

// Contains reports whether the vote includes the given option index.
func (v VoteValue) Contains(index int) bool {
	for _, i := range v {
		if i == index {
			return true
		}
	}
	return false
}

// Response is one threaded reply on a note.
type Response struct {
	Content    string                  `json:"content"`
	AuthorID   string                  `json:"authorId"`
	AuthorName string                  `json:"authorName"`
	CreatedAt  time.Time               `json:"createdAt"`
	Reactions  map[string]ReactionKind `json:"reactions,omitempty"`
}

// Edit is one superseded content version of a note.
type Edit struct {
	Content  string    `json:"content"`
	EditedAt time.Time `json:"editedAt"`
}

// Note is one typed contribution. Optional fields stay zero-valued when the
// stored document omits them.
type Note struct {
	ID              string                  `json:"id"`
	CollaborationID string                  `json:"collaborationId"`
	Type            NoteType                `json:"type"`
	Content         string                  `json:"content"`
	CreatedBy       string                  `json:"createdBy"`
	CreatorName     string                  `json:"creatorName"`
	CreatedAt       time.Time               `json:"createdAt"`
	Assignee        string                  `json:"assignee,omitempty"`
	DueDate         string                  `json:"dueDate,omitempty"`
	PollOptions     []string                `json:"pollOptions,omitempty"`
	PollVotes       map[string]VoteValue    `json:"pollVotes,omitempty"`
	PollMultiple    bool                    `json:"pollMultiple,omitempty"`
	PollClosed      bool                    `json:"pollClosed,omitempty"`
	Reactions       map[string]ReactionKind `json:"reactions,omitempty"`
	Responses       []Response              `json:"responses,omitempty"`
	EditHistory     []Edit                  `json:"editHistory,omitempty"`
	Archived        bool                    `json:"archived,omitempty"`
	GroupedUnder    string                  `json:"groupedUnder,omitempty"`
	MarkedDuplicate bool                    `json:"markedDuplicate,omitempty"`
}

// CollabState tags a collaboration snapshot: the record may not have arrived
// yet, may exist, or may be confirmed missing.
type CollabState int

const (
	CollabLoading CollabState = iota
	CollabFound
	CollabNotFound
)

// CollabSnapshot is the tagged three-state value delivered to collaboration
// subscribers.
type CollabSnapshot struct {
	State  CollabState
	Record *Collaboration
}
