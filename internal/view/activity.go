package view

import (
	"fmt"
	"sort"
	"time"

	"huddle/api/internal/live"
)

// UserActivity is one row of the participant-management table: everything a
// user has contributed plus their most recent activity marker.
type UserActivity struct {
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName"`
	Notes        int       `json:"notes"`
	Reactions    int       `json:"reactions"`
	Responses    int       `json:"responses"`
	LastActivity time.Time `json:"lastActivity"`
}

// Contributions is the combined contribution count.
func (a UserActivity) Contributions() int {
	return a.Notes + a.Reactions + a.Responses
}

// AggregateActivity attributes one contribution per note, response, and
// reaction to the acting user. Display names come from authored notes and
// responses; a user known only as a reactor has their name backfilled in a
// second pass when any authored content exists. Roster members and the host
// are always listed, even with zero contributions.
func AggregateActivity(notes []live.Note, roster []live.Participant, collab *live.Collaboration) []UserActivity {
	entries := make(map[string]*UserActivity)
	touch := func(userID string) *UserActivity {
		entry, ok := entries[userID]
		if !ok {
			entry = &UserActivity{UserID: userID}
			entries[userID] = entry
		}
		return entry
	}
	mark := func(entry *UserActivity, at time.Time) {
		if at.After(entry.LastActivity) {
			entry.LastActivity = at
		}
	}

	for _, note := range notes {
		author := touch(note.CreatedBy)
		author.Notes++
		if author.DisplayName == "" {
			author.DisplayName = note.CreatorName
		}
		mark(author, note.CreatedAt)

		for userID := range note.Reactions {
			touch(userID).Reactions++
		}
		for _, response := range note.Responses {
			responder := touch(response.AuthorID)
			responder.Responses++
			if responder.DisplayName == "" {
				responder.DisplayName = response.AuthorName
			}
			mark(responder, response.CreatedAt)
			for userID := range response.Reactions {
				touch(userID).Reactions++
			}
		}
	}

	// Backfill names for reaction-only users from anything they authored.
	for userID, entry := range entries {
		if entry.DisplayName != "" {
			continue
		}
		entry.DisplayName = authoredName(notes, userID)
	}

	for _, participant := range roster {
		entry := touch(participant.UserID)
		if entry.DisplayName == "" {
			entry.DisplayName = participant.DisplayName
		}
	}
	if collab != nil && collab.HostID != "" {
		entry := touch(collab.HostID)
		if entry.DisplayName == "" {
			entry.DisplayName = collab.HostName
		}
	}

	out := make([]UserActivity, 0, len(entries))
	for _, entry := range entries {
		out = append(out, *entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.LastActivity.Equal(b.LastActivity) {
			return a.LastActivity.After(b.LastActivity)
		}
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.UserID < b.UserID
	})
	return out
}

// authoredName finds a display name for userID from any note or response
// they authored. Returns "" when the user has only ever reacted.
func authoredName(notes []live.Note, userID string) string {
	for _, note := range notes {
		if note.CreatedBy == userID && note.CreatorName != "" {
			return note.CreatorName
		}
		for _, response := range note.Responses {
			if response.AuthorID == userID && response.AuthorName != "" {
				return response.AuthorName
			}
		}
	}
	return ""
}

// RelativeTime renders the gap between value and now using the greatest
// unit that is at least one: seconds, minutes, hours, or days.
func RelativeTime(value, now time.Time) string {
	seconds := int(now.Sub(value).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds ago", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	days := hours / 24
	return fmt.Sprintf("%dd ago", days)
}
