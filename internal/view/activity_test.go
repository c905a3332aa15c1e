package view

import (
	"testing"
	"time"

	"huddle/api/internal/live"
)

func TestAggregateActivityCountsAndNames(t *testing.T) {
	first := note("n1", live.TypeQuestion, "usr_a", 0)
	first.CreatorName = "Alex"
	first.Reactions = map[string]live.ReactionKind{"usr_b": live.ReactionAgree}
	first.Responses = []live.Response{{
		Content:    "<p>reply</p>",
		AuthorID:   "usr_b",
		AuthorName: "Blair",
		CreatedAt:  testBase.Add(5 * time.Minute),
	}}
	second := note("n2", live.TypeStatement, "usr_a", 10)
	second.CreatorName = "Alex"

	activity := AggregateActivity([]live.Note{first, second}, nil, nil)
	byID := make(map[string]UserActivity)
	for _, entry := range activity {
		byID[entry.UserID] = entry
	}

	alex := byID["usr_a"]
	if alex.Notes != 2 || alex.Reactions != 0 || alex.Responses != 0 {
		t.Errorf("usr_a = %+v", alex)
	}
	if alex.DisplayName != "Alex" {
		t.Errorf("usr_a name = %q", alex.DisplayName)
	}
	if !alex.LastActivity.Equal(testBase.Add(10 * time.Minute)) {
		t.Errorf("usr_a last activity = %v", alex.LastActivity)
	}

	blair := byID["usr_b"]
	if blair.Notes != 0 || blair.Reactions != 1 || blair.Responses != 1 {
		t.Errorf("usr_b = %+v", blair)
	}
	if blair.Contributions() != 2 {
		t.Errorf("usr_b contributions = %d", blair.Contributions())
	}
	if blair.DisplayName != "Blair" {
		t.Errorf("usr_b name = %q", blair.DisplayName)
	}
}

func TestAggregateActivityBackfillsReactorNames(t *testing.T) {
	reacted := note("n1", live.TypeQuestion, "usr_a", 0)
	reacted.CreatorName = "Alex"
	reacted.Reactions = map[string]live.ReactionKind{"usr_b": live.ReactionAgree}
	authored := note("n2", live.TypeStatement, "usr_b", 1)
	authored.CreatorName = "Blair"

	activity := AggregateActivity([]live.Note{reacted, authored}, nil, nil)
	for _, entry := range activity {
		if entry.UserID == "usr_b" && entry.DisplayName != "Blair" {
			t.Errorf("reactor name not backfilled: %+v", entry)
		}
	}
}

func TestAggregateActivityListsQuietRosterMembersAndHost(t *testing.T) {
	roster := []live.Participant{{UserID: "usr_quiet", DisplayName: "Quinn", Status: live.ParticipantApproved}}
	collab := &live.Collaboration{HostID: "usr_host", HostName: "Avery"}

	activity := AggregateActivity(nil, roster, collab)
	if len(activity) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(activity))
	}
	byID := make(map[string]UserActivity)
	for _, entry := range activity {
		byID[entry.UserID] = entry
	}
	if entry := byID["usr_quiet"]; entry.DisplayName != "Quinn" || entry.Contributions() != 0 {
		t.Errorf("quiet member = %+v", entry)
	}
	if entry := byID["usr_host"]; entry.DisplayName != "Avery" || entry.Contributions() != 0 {
		t.Errorf("host = %+v", entry)
	}
}

func TestAggregateActivityOrdersByRecency(t *testing.T) {
	older := note("n1", live.TypeQuestion, "usr_a", 0)
	older.CreatorName = "Alex"
	newer := note("n2", live.TypeQuestion, "usr_b", 5)
	newer.CreatorName = "Blair"
	roster := []live.Participant{{UserID: "usr_quiet", DisplayName: "Quinn"}}

	activity := AggregateActivity([]live.Note{older, newer}, roster, nil)
	if len(activity) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(activity))
	}
	if activity[0].UserID != "usr_b" || activity[1].UserID != "usr_a" {
		t.Errorf("order = %s, %s; want usr_b first", activity[0].UserID, activity[1].UserID)
	}
	if activity[2].UserID != "usr_quiet" {
		t.Errorf("zero-activity member not last: %s", activity[2].UserID)
	}
}

func TestRelativeTimeBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{name: "sub-second floors to one second", ago: 200 * time.Millisecond, want: "1s ago"},
		{name: "seconds", ago: 42 * time.Second, want: "42s ago"},
		{name: "minutes", ago: 5 * time.Minute, want: "5m ago"},
		{name: "hours", ago: 3 * time.Hour, want: "3h ago"},
		{name: "days", ago: 49 * time.Hour, want: "2d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativeTime(now.Add(-tt.ago), now); got != tt.want {
				t.Errorf("RelativeTime = %q, want %q", got, tt.want)
			}
		})
	}
}
