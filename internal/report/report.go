// Package report renders a finished collaboration into exportable HTML and
// Markdown. Both renderings are built from one composed section model, so
// they stay content-equivalent: same sections, same ordering, same computed
// values, differing only in markup.
package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"huddle/api/internal/live"
	"huddle/api/internal/view"
)

// Format names an export output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// ValidFormat reports whether value names a known export format.
func ValidFormat(value string) bool {
	switch Format(value) {
	case FormatHTML, FormatMarkdown, FormatPDF:
		return true
	}
	return false
}

// Artifact is one generated export payload.
type Artifact struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates the headless browser needed for PDF
// rendering is not installed.
var ErrPDFDependencyMissing = errors.New("report pdf dependency missing")

// Report holds both textual renderings of a collaboration.
type Report struct {
	HTML     string
	Markdown string
}

// Generate produces the HTML and Markdown renderings. It never fails:
// missing optional fields render as empty values and empty note lists
// produce a report with no Key Takeaways and no Timeline section.
func Generate(collab live.Collaboration, notes []live.Note) Report {
	model := compose(collab, notes)
	return Report{
		HTML:     renderHTML(model),
		Markdown: renderMarkdown(model),
	}
}

// reactionSummary groups a note's reactions into resolved display names.
type reactionSummary struct {
	Agreed     []string
	Disagreed  []string
	MarkedRead []string
}

func (r reactionSummary) empty() bool {
	return len(r.Agreed) == 0 && len(r.Disagreed) == 0 && len(r.MarkedRead) == 0
}

type actionRow struct {
	Prompt   string
	Content  string
	Author   string
	Assignee string
	DueDate  string
}

type simpleRow struct {
	Prompt  string
	Content string
	Author  string
}

type pollOptionRow struct {
	Option  string
	Votes   int
	Percent int
	Voters  []string
}

type pollTable struct {
	Question string
	Author   string
	Options  []pollOptionRow
}

type responseEntry struct {
	Author    string
	Timestamp time.Time
	Content   string
}

type editEntry struct {
	Timestamp time.Time
	Content   string
}

type timelineEntry struct {
	Type       live.NoteType
	Author     string
	Timestamp  time.Time
	Assignee   string
	DueDate    string
	Content    string
	Reactions  reactionSummary
	Responses  []responseEntry
	Edits      []editEntry
}

type reportModel struct {
	Title        string
	Host         string
	StartedAt    time.Time
	Prompt       string
	ActionItems  []actionRow
	Requirements []simpleRow
	Constructive []simpleRow
	Polls        []pollTable
	Timeline     []timelineEntry
}

func (m reportModel) hasTakeaways() bool {
	return len(m.ActionItems) > 0 || len(m.Requirements) > 0 ||
		len(m.Constructive) > 0 || len(m.Polls) > 0
}

// compose derives all rendered values once; the HTML and Markdown renderers
// only add markup around this model.
func compose(collab live.Collaboration, notes []live.Note) reportModel {
	timeline := promptTimeline(collab)
	model := reportModel{
		Title:     collab.Title,
		Host:      collab.HostName,
		StartedAt: collab.StartedAt,
		Prompt:    collab.Prompt,
	}

	for _, note := range notes {
		author := noteAuthor(collab, note)
		prompt := activePrompt(timeline, note.CreatedAt)

		switch note.Type {
		case live.TypeActionItem:
			model.ActionItems = append(model.ActionItems, actionRow{
				Prompt:   prompt,
				Content:  note.Content,
				Author:   author,
				Assignee: note.Assignee,
				DueDate:  formatDueDate(note.DueDate),
			})
		case live.TypeRequirement:
			model.Requirements = append(model.Requirements, simpleRow{
				Prompt:  prompt,
				Content: note.Content,
				Author:  author,
			})
		case live.TypeConstructiveFeedback:
			model.Constructive = append(model.Constructive, simpleRow{
				Prompt:  prompt,
				Content: note.Content,
				Author:  author,
			})
		case live.TypePoll:
			if len(note.PollOptions) > 0 {
				model.Polls = append(model.Polls, composePoll(collab, notes, note))
			}
		}

		entry := timelineEntry{
			Type:      note.Type,
			Author:    author,
			Timestamp: note.CreatedAt,
			Assignee:  note.Assignee,
			DueDate:   formatDueDate(note.DueDate),
			Content:   note.Content,
			Reactions: categorizeReactions(collab, notes, note.Reactions),
		}
		for _, response := range note.Responses {
			entry.Responses = append(entry.Responses, responseEntry{
				Author:    responseAuthor(collab, response),
				Timestamp: response.CreatedAt,
				Content:   response.Content,
			})
		}
		for _, edit := range note.EditHistory {
			entry.Edits = append(entry.Edits, editEntry{
				Timestamp: edit.EditedAt,
				Content:   edit.Content,
			})
		}
		model.Timeline = append(model.Timeline, entry)
	}
	return model
}

// promptTimeline merges the prompt history with the current prompt into one
// ascending sequence of versions.
func promptTimeline(collab live.Collaboration) []live.PromptVersion {
	timeline := make([]live.PromptVersion, 0, len(collab.PromptHistory)+1)
	timeline = append(timeline, collab.PromptHistory...)
	timeline = append(timeline, live.PromptVersion{
		Content:  collab.Prompt,
		EditedAt: collab.PromptUpdatedAt,
	})
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].EditedAt.Before(timeline[j].EditedAt)
	})
	return timeline
}

// activePrompt returns the latest timeline entry whose timestamp is not
// after the note's creation; the last entry wins for notes newer than every
// recorded change.
func activePrompt(timeline []live.PromptVersion, at time.Time) string {
	if len(timeline) == 0 {
		return ""
	}
	active := timeline[len(timeline)-1].Content
	for i := len(timeline) - 1; i >= 0; i-- {
		if !timeline[i].EditedAt.After(at) {
			return timeline[i].Content
		}
	}
	return active
}

// noteAuthor resolves a note's attribution; the host gets a " (host)"
// suffix except on Host-note entries, which are already host-attributed.
func noteAuthor(collab live.Collaboration, note live.Note) string {
	name := note.CreatorName
	if name == "" {
		name = note.CreatedBy
	}
	if note.CreatedBy == collab.HostID && note.Type != live.TypeHostNote {
		return name + " (host)"
	}
	return name
}

func responseAuthor(collab live.Collaboration, response live.Response) string {
	name := response.AuthorName
	if name == "" {
		name = response.AuthorID
	}
	if response.AuthorID == collab.HostID {
		return name + " (host)"
	}
	return name
}

// resolveName maps a reacting or voting user id to a display name by
// scanning authored notes; when the user never posted, the raw id is shown.
func resolveName(collab live.Collaboration, notes []live.Note, userID string) string {
	name := ""
	for _, note := range notes {
		if note.CreatedBy == userID && note.CreatorName != "" {
			name = note.CreatorName
			break
		}
	}
	if name == "" {
		name = userID
	}
	if userID == collab.HostID {
		return name + " (host)"
	}
	return name
}

func categorizeReactions(collab live.Collaboration, notes []live.Note, reactions map[string]live.ReactionKind) reactionSummary {
	var summary reactionSummary
	userIDs := make([]string, 0, len(reactions))
	for userID := range reactions {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)
	for _, userID := range userIDs {
		name := resolveName(collab, notes, userID)
		switch reactions[userID] {
		case live.ReactionAgree:
			summary.Agreed = append(summary.Agreed, name)
		case live.ReactionDisagree:
			summary.Disagreed = append(summary.Disagreed, name)
		case live.ReactionMarkRead:
			summary.MarkedRead = append(summary.MarkedRead, name)
		}
	}
	return summary
}

func composePoll(collab live.Collaboration, notes []live.Note, note live.Note) pollTable {
	table := pollTable{
		Question: note.Content,
		Author:   noteAuthor(collab, note),
	}
	tally := view.TallyPoll(note)
	voterIDs := make([]string, 0, len(note.PollVotes))
	for userID := range note.PollVotes {
		voterIDs = append(voterIDs, userID)
	}
	sort.Strings(voterIDs)
	for i, option := range tally {
		row := pollOptionRow{
			Option:  option.Option,
			Votes:   option.Votes,
			Percent: option.Percent,
		}
		for _, userID := range voterIDs {
			if note.PollVotes[userID].Contains(i) {
				row.Voters = append(row.Voters, resolveName(collab, notes, userID))
			}
		}
		table.Options = append(table.Options, row)
	}
	return table
}

// formatDueDate renders a stored ISO date as M/D/YYYY. Unparseable values
// pass through untouched.
func formatDueDate(value string) string {
	if value == "" {
		return ""
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return value
	}
	return parsed.Format("1/2/2006")
}

func formatTimestamp(value time.Time) string {
	return value.Format("Jan 2, 2006 3:04 PM")
}

func formatPercent(value int) string {
	return fmt.Sprintf("%d%%", value)
}
