package report

import (
	"fmt"
	"strconv"
	"strings"
)

// renderMarkdown builds the plain-text rendering. Rich text is reduced to
// plain text and markup-significant characters are escaped; table cells
// additionally escape pipes and fold newlines.
func renderMarkdown(model reportModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(model.Title))
	fmt.Fprintf(&b, "Hosted by %s · Started %s\n\n",
		escapeMarkdown(model.Host), formatTimestamp(model.StartedAt))
	if strings.TrimSpace(model.Prompt) != "" {
		b.WriteString("## Prompt\n\n")
		fmt.Fprintf(&b, "%s\n\n", markdownText(model.Prompt))
	}

	if model.hasTakeaways() {
		b.WriteString("## Key Takeaways\n\n")
		writeActionItemsMarkdown(&b, model.ActionItems)
		writeSimpleTableMarkdown(&b, "Requirements", "Requirement", model.Requirements)
		writeSimpleTableMarkdown(&b, "Constructive Feedback", "Feedback", model.Constructive)
		writePollsMarkdown(&b, model.Polls)
	}

	if len(model.Timeline) > 0 {
		b.WriteString("## Timeline\n\n")
		for _, entry := range model.Timeline {
			writeTimelineEntryMarkdown(&b, entry)
		}
	}
	return b.String()
}

func writeActionItemsMarkdown(b *strings.Builder, rows []actionRow) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("### Action Items\n\n")
	b.WriteString("| Prompt | Action item | Author | Assignee | Due date |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			tableCell(row.Prompt),
			tableCell(row.Content),
			tableCell(row.Author),
			tableCell(row.Assignee),
			tableCell(row.DueDate))
	}
	b.WriteString("\n")
}

func writeSimpleTableMarkdown(b *strings.Builder, heading, column string, rows []simpleRow) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	fmt.Fprintf(b, "| Prompt | %s | Author |\n", column)
	b.WriteString("| --- | --- | --- |\n")
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %s | %s |\n",
			tableCell(row.Prompt),
			tableCell(row.Content),
			tableCell(row.Author))
	}
	b.WriteString("\n")
}

func writePollsMarkdown(b *strings.Builder, polls []pollTable) {
	if len(polls) == 0 {
		return
	}
	b.WriteString("### Polls\n\n")
	for _, poll := range polls {
		fmt.Fprintf(b, "#### %s\n\n", markdownText(poll.Question))
		fmt.Fprintf(b, "Asked by %s\n\n", escapeMarkdown(poll.Author))
		b.WriteString("| Option | Votes | Percent | Voters |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, row := range poll.Options {
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
				tableCell(row.Option),
				strconv.Itoa(row.Votes),
				formatPercent(row.Percent),
				tableCell(strings.Join(row.Voters, ", ")))
		}
		b.WriteString("\n")
	}
}

func writeTimelineEntryMarkdown(b *strings.Builder, entry timelineEntry) {
	fmt.Fprintf(b, "### %s — %s\n\n", entry.Type, escapeMarkdown(entry.Author))
	fmt.Fprintf(b, "%s\n\n", formatTimestamp(entry.Timestamp))
	if entry.Assignee != "" || entry.DueDate != "" {
		fmt.Fprintf(b, "Assignee: %s · Due: %s\n\n",
			escapeMarkdown(entry.Assignee), entry.DueDate)
	}
	fmt.Fprintf(b, "%s\n\n", markdownText(entry.Content))

	if !entry.Reactions.empty() {
		writeReactionGroupMarkdown(b, "Agreed", entry.Reactions.Agreed)
		writeReactionGroupMarkdown(b, "Disagreed", entry.Reactions.Disagreed)
		writeReactionGroupMarkdown(b, "Marked read", entry.Reactions.MarkedRead)
		b.WriteString("\n")
	}

	for i, response := range entry.Responses {
		fmt.Fprintf(b, "%d. %s (%s): %s\n", i+1,
			escapeMarkdown(response.Author),
			formatTimestamp(response.Timestamp),
			markdownText(response.Content))
	}
	if len(entry.Responses) > 0 {
		b.WriteString("\n")
	}

	if len(entry.Edits) > 0 {
		b.WriteString("Edit history:\n\n")
		for _, edit := range entry.Edits {
			fmt.Fprintf(b, "- %s: %s\n", formatTimestamp(edit.Timestamp), markdownText(edit.Content))
		}
		b.WriteString("\n")
	}
}

func writeReactionGroupMarkdown(b *strings.Builder, label string, names []string) {
	if len(names) == 0 {
		return
	}
	escaped := make([]string, len(names))
	for i, name := range names {
		escaped[i] = escapeMarkdown(name)
	}
	fmt.Fprintf(b, "%s: %s.\n", label, strings.Join(escaped, ", "))
}

// markdownText reduces rich text to escaped plain text.
func markdownText(input string) string {
	return escapeMarkdown(PlainText(input))
}

var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"|", "\\|",
	"`", "\\`",
	"*", "\\*",
	"_", "\\_",
	"#", "\\#",
	"[", "\\[",
	"]", "\\]",
)

func escapeMarkdown(input string) string {
	return markdownEscaper.Replace(input)
}

// tableCell escapes a value for a pipe-table cell, folding newlines.
func tableCell(input string) string {
	flattened := strings.Join(strings.Fields(PlainText(input)), " ")
	return escapeMarkdown(flattened)
}
