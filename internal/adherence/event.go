// Package adherence computes adherence statistics over a batch of dose events: overall
// rate, time-of-day and weekday breakdowns, user and medication rankings, weekly trends,
// and the report and dashboard views composed from them.
//
// Every function here is pure over its input slice; events are never mutated.
package adherence

import (
	"errors"
	"fmt"
	"time"

	"medadherence/internal/features"
)

// Status is the outcome of one scheduled dose.
type Status string

const (
	StatusTaken  Status = "taken"
	StatusMissed Status = "missed"
)

// ErrMissingField marks an event or payload without a required field.
var ErrMissingField = errors.New("missing required field")

// ErrInvalidStatus marks a status outside taken/missed.
var ErrInvalidStatus = errors.New("invalid status")

// DoseEvent is one scheduled dose and its outcome.
//
// ScheduledTime is the zero time when the source timestamp could not be parsed; such an
// event still counts towards overall, user and medication stats but has no clock
// position unless Hour/Day were supplied explicitly.
type DoseEvent struct {
	UserID        string     `json:"user_id"`
	MedicationID  string     `json:"medication_id"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	TakenTime     *time.Time `json:"taken_time,omitempty"`
	Status        Status     `json:"status"`

	// Hour and Day override the values derived from ScheduledTime. Log exports carry
	// them as separate columns.
	Hour *int `json:"hour_of_day,omitempty"`
	Day  *int `json:"day_of_week,omitempty"`
}

// Taken reports whether the dose was taken.
func (e DoseEvent) Taken() bool { return e.Status == StatusTaken }

// HourOfDay returns the event's hour, or false when it has none.
func (e DoseEvent) HourOfDay() (int, bool) {
	if e.Hour != nil {
		return *e.Hour, true
	}
	if e.ScheduledTime.IsZero() {
		return 0, false
	}
	return e.ScheduledTime.Hour(), true
}

// DayOfWeek returns the event's weekday (0=Monday), or false when it has none.
func (e DoseEvent) DayOfWeek() (int, bool) {
	if e.Day != nil {
		return *e.Day, true
	}
	if e.ScheduledTime.IsZero() {
		return 0, false
	}
	return features.Weekday(e.ScheduledTime), true
}

// ISOWeek returns the ISO week number of ScheduledTime, or false when it is unknown.
func (e DoseEvent) ISOWeek() (int, bool) {
	if e.ScheduledTime.IsZero() {
		return 0, false
	}
	_, w := e.ScheduledTime.ISOWeek()
	return w, true
}

// Validate checks the status invariant: taken events carry a taken time, missed events
// do not.
func (e DoseEvent) Validate() error {
	switch e.Status {
	case "":
		return fmt.Errorf("%w: status", ErrMissingField)
	case StatusTaken:
		if e.TakenTime == nil {
			return fmt.Errorf("%w: taken_time for taken dose", ErrMissingField)
		}
	case StatusMissed:
		if e.TakenTime != nil {
			return fmt.Errorf("%w: missed dose has taken_time", ErrInvalidStatus)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}
	return nil
}

// ParseStatus normalises a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusTaken, StatusMissed:
		return Status(s), nil
	case "":
		return "", fmt.Errorf("%w: status", ErrMissingField)
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}
