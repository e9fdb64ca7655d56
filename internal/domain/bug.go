package domain

import (
	"strings"
	"time"
)

// BugTask is a bug as seen through one project's task list.
// Timestamps are nil when the tracker has no value for them.
type BugTask struct {
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	Importance   string     `json:"importance,omitempty"`
	WebLink      string     `json:"web_link,omitempty"`
	AssigneeLink string     `json:"assignee_link,omitempty"`
	DateCreated  *time.Time `json:"date_created,omitempty"`
	DateClosed   *time.Time `json:"date_closed,omitempty"`
	DateAssigned *time.Time `json:"date_assigned,omitempty"`
}

// DisplayTitle returns the title with surrounding whitespace removed.
func (b BugTask) DisplayTitle() string {
	return strings.TrimSpace(b.Title)
}

// TeamMember is a person belonging to a tracker team.
// SelfLink identifies the person and is used as the assignee filter.
type TeamMember struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	SelfLink    string `json:"self_link"`
}

// Timestamp selects which time field of a BugTask a filter looks at.
type Timestamp func(BugTask) *time.Time

// Timestamp selectors.
var (
	Created  Timestamp = func(b BugTask) *time.Time { return b.DateCreated }
	Closed   Timestamp = func(b BugTask) *time.Time { return b.DateClosed }
	Assigned Timestamp = func(b BugTask) *time.Time { return b.DateAssigned }
)

// FilterByRange keeps the tasks whose selected timestamp lies within r.
// Tasks missing that timestamp are dropped.
func FilterByRange(tasks []BugTask, field Timestamp, r DateRange) []BugTask {
	var kept []BugTask
	for _, t := range tasks {
		ts := field(t)
		if ts == nil || !r.Contains(*ts) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}
