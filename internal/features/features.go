// Package features turns a raw scoring context into the fixed feature vector the
// adherence model was trained on, and holds the clock-position helpers shared with the
// reporting engine (Monday-based weekday, morning/evening/weekend flags).
package features

import (
	"errors"
	"fmt"
	"time"

	"medadherence/internal/validation"
)

// Canonical feature names, in training order.
const (
	HourOfDay          = "hour_of_day"
	DayOfWeek          = "day_of_week"
	NumDailyMeds       = "num_daily_meds"
	PastAdherenceRate  = "past_adherence_rate"
	HoursSinceLastDose = "hours_since_last_dose"
	IsWeekendFlag      = "is_weekend"
	IsMorningFlag      = "is_morning"
	IsEveningFlag      = "is_evening"
)

// Order is the column order the bundled models were trained with.
var Order = []string{
	HourOfDay,
	DayOfWeek,
	NumDailyMeds,
	PastAdherenceRate,
	HoursSinceLastDose,
	IsWeekendFlag,
	IsMorningFlag,
	IsEveningFlag,
}

const (
	DefaultNumDailyMeds       = 1
	DefaultPastAdherenceRate  = 0.8
	DefaultHoursSinceLastDose = 8
)

// ErrOutOfRange is returned by a fail-closed Deriver when a raw value is outside the
// range the model was trained on.
var ErrOutOfRange = errors.New("feature value out of range")

// ValidationPolicy controls what Derive does with out-of-range raw values.
type ValidationPolicy string

const (
	// ValidationFailOpen passes raw values through unchanged (hour 27 stays 27).
	ValidationFailOpen ValidationPolicy = "fail-open"
	// ValidationFailClosed rejects the request with ErrOutOfRange.
	ValidationFailClosed ValidationPolicy = "fail-closed"
)

// ParsePolicy maps a config string to a policy; anything unknown is fail-open.
func ParsePolicy(s string) ValidationPolicy {
	if ValidationPolicy(s) == ValidationFailClosed {
		return ValidationFailClosed
	}
	return ValidationFailOpen
}

// Raw is the caller-supplied context. Nil fields take defaults.
type Raw struct {
	HourOfDay          *int     `json:"hour_of_day,omitempty" validate:"omitempty,min=0,max=23"`
	DayOfWeek          *int     `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	NumDailyMeds       *int     `json:"num_daily_meds,omitempty" validate:"omitempty,min=0"`
	PastAdherenceRate  *float64 `json:"past_adherence_rate,omitempty" validate:"omitempty,min=0,max=1"`
	HoursSinceLastDose *float64 `json:"hours_since_last_dose,omitempty" validate:"omitempty,min=0"`
}

// Vector is the derived feature set for one scored context.
type Vector struct {
	HourOfDay          int     `json:"hour_of_day"`
	DayOfWeek          int     `json:"day_of_week"`
	NumDailyMeds       int     `json:"num_daily_meds"`
	PastAdherenceRate  float64 `json:"past_adherence_rate"`
	HoursSinceLastDose float64 `json:"hours_since_last_dose"`
	IsWeekend          bool    `json:"is_weekend"`
	IsMorning          bool    `json:"is_morning"`
	IsEvening          bool    `json:"is_evening"`
}

// Value returns the numeric value of the named feature. Flags encode as 0/1.
func (v Vector) Value(name string) (float64, bool) {
	switch name {
	case HourOfDay:
		return float64(v.HourOfDay), true
	case DayOfWeek:
		return float64(v.DayOfWeek), true
	case NumDailyMeds:
		return float64(v.NumDailyMeds), true
	case PastAdherenceRate:
		return v.PastAdherenceRate, true
	case HoursSinceLastDose:
		return v.HoursSinceLastDose, true
	case IsWeekendFlag:
		return flag(v.IsWeekend), true
	case IsMorningFlag:
		return flag(v.IsMorning), true
	case IsEveningFlag:
		return flag(v.IsEvening), true
	}
	return 0, false
}

// Layout lays the vector out in the given column order. An unknown column name means
// the model and this deriver disagree on the feature contract.
func (v Vector) Layout(columns []string) ([]float64, error) {
	out := make([]float64, len(columns))
	for i, c := range columns {
		x, ok := v.Value(c)
		if !ok {
			return nil, fmt.Errorf("unknown feature column %q", c)
		}
		out[i] = x
	}
	return out, nil
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Deriver resolves Raw contexts into Vectors. Now supplies the hour/weekday used when a
// caller omits them; callers that need reproducible output set both explicitly or pin
// Now.
type Deriver struct {
	Now    func() time.Time
	Policy ValidationPolicy
}

// NewDeriver returns a Deriver on the wall clock.
func NewDeriver(policy ValidationPolicy) *Deriver {
	return &Deriver{Now: time.Now, Policy: policy}
}

// Derive builds the feature vector for raw.
func (d *Deriver) Derive(raw Raw) (Vector, error) {
	if d.Policy == ValidationFailClosed {
		if verr := validation.ValidateStruct(&raw); verr != nil {
			return Vector{}, fmt.Errorf("%w: %s", ErrOutOfRange, verr.Error())
		}
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	var hour, day int
	if raw.HourOfDay == nil || raw.DayOfWeek == nil {
		t := now()
		hour, day = t.Hour(), Weekday(t)
	}
	if raw.HourOfDay != nil {
		hour = *raw.HourOfDay
	}
	if raw.DayOfWeek != nil {
		day = *raw.DayOfWeek
	}

	v := Vector{
		HourOfDay:          hour,
		DayOfWeek:          day,
		NumDailyMeds:       DefaultNumDailyMeds,
		PastAdherenceRate:  DefaultPastAdherenceRate,
		HoursSinceLastDose: DefaultHoursSinceLastDose,
		IsWeekend:          IsWeekend(day),
		IsMorning:          IsMorning(hour),
		IsEvening:          IsEvening(hour),
	}
	if raw.NumDailyMeds != nil {
		v.NumDailyMeds = *raw.NumDailyMeds
	}
	if raw.PastAdherenceRate != nil {
		v.PastAdherenceRate = *raw.PastAdherenceRate
	}
	if raw.HoursSinceLastDose != nil {
		v.HoursSinceLastDose = *raw.HoursSinceLastDose
	}
	return v, nil
}

// Weekday returns t's weekday with Monday as 0.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsWeekend reports Saturday or Sunday.
func IsWeekend(day int) bool { return day == 5 || day == 6 }

func IsMorning(hour int) bool { return hour >= 6 && hour < 12 }

// IsEvening covers 18:00-22:59; 23:00 is not evening for the model.
func IsEvening(hour int) bool { return hour >= 18 && hour < 23 }
