// Package reminders implements the Reminder data model and its on-disk
// persistence (spec §3, §6), plus the periodic check that fires due
// reminders into the Thought Buffer.
package reminders

import "time"

// Type distinguishes what kind of scheduled item a Reminder represents.
type Type string

const (
	TypeReminder Type = "reminder"
	TypeTimer    Type = "timer"
	TypeEvent    Type = "event"
)

// Reminder is a single scheduled item, one-shot or repeating.
type Reminder struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	TriggerTime time.Time `json:"trigger_time"`
	CreatedAt   time.Time `json:"created_at"`
	Type        Type      `json:"reminder_type"`
	// RepeatInterval, if non-empty, is a robfig/cron/v3 expression used to
	// compute the next TriggerTime after this one fires.
	RepeatInterval string `json:"repeat_interval,omitempty"`
	Notified       bool   `json:"notified"`
	IsUrgent       bool   `json:"is_urgent"`
}

// Due reports whether the reminder should fire at or before now.
func (r Reminder) Due(now time.Time) bool {
	return !r.Notified && !r.TriggerTime.After(now)
}

// file is the on-disk shape of reminders.json (spec §6).
type file struct {
	Reminders []Reminder `json:"reminders"`
	LastSaved time.Time  `json:"last_saved"`
}
