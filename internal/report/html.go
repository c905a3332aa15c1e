package report

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// renderHTML builds the rich-text rendering. Free-text note content keeps
// its markup after sanitization; everything else is escaped.
func renderHTML(model reportModel) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(model.Title))
	b.WriteString(htmlStyle)
	b.WriteString("</head>\n<body>\n")

	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(model.Title))
	fmt.Fprintf(&b, "<p class=\"meta\">Hosted by %s &middot; Started %s</p>\n",
		html.EscapeString(model.Host), html.EscapeString(formatTimestamp(model.StartedAt)))
	if strings.TrimSpace(model.Prompt) != "" {
		b.WriteString("<h2>Prompt</h2>\n")
		fmt.Fprintf(&b, "<div class=\"prompt\">%s</div>\n", SanitizeHTML(model.Prompt))
	}

	if model.hasTakeaways() {
		b.WriteString("<h2>Key Takeaways</h2>\n")
		writeActionItemsHTML(&b, model.ActionItems)
		writeSimpleTableHTML(&b, "Requirements", "Requirement", model.Requirements)
		writeSimpleTableHTML(&b, "Constructive Feedback", "Feedback", model.Constructive)
		writePollsHTML(&b, model.Polls)
	}

	if len(model.Timeline) > 0 {
		b.WriteString("<h2>Timeline</h2>\n")
		for _, entry := range model.Timeline {
			writeTimelineEntryHTML(&b, entry)
		}
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func writeActionItemsHTML(b *strings.Builder, rows []actionRow) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("<h3>Action Items</h3>\n<table>\n")
	b.WriteString("<tr><th>Prompt</th><th>Action item</th><th>Author</th><th>Assignee</th><th>Due date</th></tr>\n")
	for _, row := range rows {
		fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			SanitizeHTML(row.Prompt),
			SanitizeHTML(row.Content),
			html.EscapeString(row.Author),
			html.EscapeString(row.Assignee),
			html.EscapeString(row.DueDate))
	}
	b.WriteString("</table>\n")
}

func writeSimpleTableHTML(b *strings.Builder, heading, column string, rows []simpleRow) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(b, "<h3>%s</h3>\n<table>\n", html.EscapeString(heading))
	fmt.Fprintf(b, "<tr><th>Prompt</th><th>%s</th><th>Author</th></tr>\n", html.EscapeString(column))
	for _, row := range rows {
		fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			SanitizeHTML(row.Prompt),
			SanitizeHTML(row.Content),
			html.EscapeString(row.Author))
	}
	b.WriteString("</table>\n")
}

func writePollsHTML(b *strings.Builder, polls []pollTable) {
	if len(polls) == 0 {
		return
	}
	b.WriteString("<h3>Polls</h3>\n")
	for _, poll := range polls {
		fmt.Fprintf(b, "<h4>%s</h4>\n", SanitizeHTML(poll.Question))
		fmt.Fprintf(b, "<p class=\"meta\">Asked by %s</p>\n", html.EscapeString(poll.Author))
		b.WriteString("<table>\n<tr><th>Option</th><th>Votes</th><th>Percent</th><th>Voters</th></tr>\n")
		for _, row := range poll.Options {
			fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				html.EscapeString(row.Option),
				strconv.Itoa(row.Votes),
				html.EscapeString(formatPercent(row.Percent)),
				html.EscapeString(strings.Join(row.Voters, ", ")))
		}
		b.WriteString("</table>\n")
	}
}

func writeTimelineEntryHTML(b *strings.Builder, entry timelineEntry) {
	b.WriteString("<div class=\"note\">\n")
	fmt.Fprintf(b, "<h3>%s &mdash; %s</h3>\n",
		html.EscapeString(string(entry.Type)), html.EscapeString(entry.Author))
	fmt.Fprintf(b, "<p class=\"meta\">%s</p>\n", html.EscapeString(formatTimestamp(entry.Timestamp)))
	if entry.Assignee != "" || entry.DueDate != "" {
		fmt.Fprintf(b, "<p class=\"meta\">Assignee: %s &middot; Due: %s</p>\n",
			html.EscapeString(entry.Assignee), html.EscapeString(entry.DueDate))
	}
	fmt.Fprintf(b, "<div>%s</div>\n", SanitizeHTML(entry.Content))

	if !entry.Reactions.empty() {
		b.WriteString("<p class=\"meta\">")
		writeReactionGroupHTML(b, "Agreed", entry.Reactions.Agreed)
		writeReactionGroupHTML(b, "Disagreed", entry.Reactions.Disagreed)
		writeReactionGroupHTML(b, "Marked read", entry.Reactions.MarkedRead)
		b.WriteString("</p>\n")
	}

	for i, response := range entry.Responses {
		fmt.Fprintf(b, "<div class=\"response\"><p class=\"meta\">%d. %s &middot; %s</p>%s</div>\n",
			i+1,
			html.EscapeString(response.Author),
			html.EscapeString(formatTimestamp(response.Timestamp)),
			SanitizeHTML(response.Content))
	}

	if len(entry.Edits) > 0 {
		b.WriteString("<details><summary>Edit history</summary>\n")
		for _, edit := range entry.Edits {
			fmt.Fprintf(b, "<div class=\"edit\"><p class=\"meta\">%s</p>%s</div>\n",
				html.EscapeString(formatTimestamp(edit.Timestamp)),
				SanitizeHTML(edit.Content))
		}
		b.WriteString("</details>\n")
	}
	b.WriteString("</div>\n")
}

func writeReactionGroupHTML(b *strings.Builder, label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s. ", html.EscapeString(label), html.EscapeString(strings.Join(names, ", ")))
}

const htmlStyle = `<style>
body { font-family: Arial, sans-serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; }
h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
table { border-collapse: collapse; margin: 0.5rem 0 1rem; }
th, td { border: 1px solid #999; padding: 0.3rem 0.6rem; text-align: left; }
.meta { color: #666; font-size: 0.9em; }
.note { border-left: 3px solid #333; padding-left: 1rem; margin: 1rem 0; }
.response, .edit { margin-left: 1.5rem; }
</style>
`
