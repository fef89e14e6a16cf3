package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"medadherence/internal/adherence"
	"medadherence/internal/validation"
)

// ErrInvalidRecord marks a dose record that fails field validation.
var ErrInvalidRecord = errors.New("invalid dose record")

// LogRecord is one dose log as posted by clients.
type LogRecord struct {
	UserID        string `json:"user_id" validate:"required"`
	MedicationID  string `json:"medication_id" validate:"required"`
	ScheduledTime string `json:"scheduled_time" validate:"required"`
	TakenTime     string `json:"taken_time,omitempty"`
	Status        string `json:"status"`
	HourOfDay     *int   `json:"hour_of_day,omitempty" validate:"omitempty,min=0,max=23"`
	DayOfWeek     *int   `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	Notes         string `json:"notes,omitempty" validate:"max=500"`
}

// Events converts a report payload. Status is mandatory and a taken dose needs a
// parseable taken_time; an unparseable scheduled time leaves the event without a clock
// position instead of rejecting the batch.
func Events(records []LogRecord) ([]adherence.DoseEvent, error) {
	out := make([]adherence.DoseEvent, 0, len(records))
	for i, r := range records {
		status, err := adherence.ParseStatus(strings.ToLower(strings.TrimSpace(r.Status)))
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", i, err)
		}
		ev := adherence.DoseEvent{
			UserID:       r.UserID,
			MedicationID: r.MedicationID,
			Status:       status,
			Hour:         r.HourOfDay,
			Day:          r.DayOfWeek,
		}
		if ts, err := ParseTime(r.ScheduledTime); err == nil {
			ev.ScheduledTime = ts
		}
		if ts, err := ParseTime(r.TakenTime); err == nil {
			ev.TakenTime = &ts
		}
		if _, err := checkDose(&ev); err != nil {
			return nil, fmt.Errorf("log %d: %w", i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// checkDose enforces the taken/missed invariant on ev. A missed dose loses any
// taken_time, reported through dropped; a taken dose without one is an error.
func checkDose(ev *adherence.DoseEvent) (dropped bool, err error) {
	if ev.Status == adherence.StatusMissed && ev.TakenTime != nil {
		ev.TakenTime = nil
		dropped = true
	}
	return dropped, ev.Validate()
}

// NewDose converts a record to be stored. Unlike Events it is strict: user, medication
// and a parseable scheduled time are required, and the taken/missed invariant must hold.
// A taken dose without taken_time is stamped with now.
func NewDose(r LogRecord, now time.Time) (adherence.DoseEvent, error) {
	if verr := validation.ValidateStruct(&r); verr != nil {
		return adherence.DoseEvent{}, fmt.Errorf("%w: %s", ErrInvalidRecord, verr.Error())
	}
	status, err := adherence.ParseStatus(strings.ToLower(strings.TrimSpace(r.Status)))
	if err != nil {
		return adherence.DoseEvent{}, err
	}
	scheduled, err := ParseTime(r.ScheduledTime)
	if err != nil {
		return adherence.DoseEvent{}, fmt.Errorf("scheduled_time: %w", err)
	}

	ev := adherence.DoseEvent{
		UserID:        r.UserID,
		MedicationID:  r.MedicationID,
		ScheduledTime: scheduled,
		Status:        status,
		Hour:          r.HourOfDay,
		Day:           r.DayOfWeek,
	}
	if status == adherence.StatusTaken {
		taken := now
		if r.TakenTime != "" {
			if taken, err = ParseTime(r.TakenTime); err != nil {
				return adherence.DoseEvent{}, fmt.Errorf("taken_time: %w", err)
			}
		}
		ev.TakenTime = &taken
	}
	if err := ev.Validate(); err != nil {
		return adherence.DoseEvent{}, err
	}
	return ev, nil
}

// AnalyticsLog is the loose log shape sent by the mobile client for chart data.
// Status may be absent on individual entries.
type AnalyticsLog struct {
	Status        *string `json:"status,omitempty"`
	ScheduledTime *string `json:"scheduledTime,omitempty"`
	Date          *string `json:"date,omitempty"`
}

// AnalyticsEvents converts chart logs. If any entry carries "date" that field is the
// timestamp for all entries, else "scheduledTime" is. A batch where no entry has a status
// is rejected with adherence.ErrMissingField; entries missing it count as not taken.
func AnalyticsEvents(logs []AnalyticsLog) ([]adherence.DoseEvent, error) {
	if len(logs) == 0 {
		return nil, nil
	}
	hasStatus, hasDate := false, false
	for _, l := range logs {
		hasStatus = hasStatus || l.Status != nil
		hasDate = hasDate || l.Date != nil
	}
	if !hasStatus {
		return nil, fmt.Errorf("%w: status", adherence.ErrMissingField)
	}

	out := make([]adherence.DoseEvent, 0, len(logs))
	for _, l := range logs {
		var ev adherence.DoseEvent
		if l.Status != nil {
			ev.Status = adherence.Status(strings.ToLower(strings.TrimSpace(*l.Status)))
		}
		src := l.ScheduledTime
		if hasDate {
			src = l.Date
		}
		if src != nil {
			if ts, err := ParseTime(*src); err == nil {
				ev.ScheduledTime = ts
			}
		}
		out = append(out, ev)
	}
	return out, nil
}
