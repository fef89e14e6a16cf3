package adherence

import "time"

// monday09 is Monday 2024-01-08 09:00 UTC, ISO week 2.
var monday09 = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func taken(user, med string, at time.Time) DoseEvent {
	tt := at.Add(10 * time.Minute)
	return DoseEvent{UserID: user, MedicationID: med, ScheduledTime: at, TakenTime: &tt, Status: StatusTaken}
}

func missed(user, med string, at time.Time) DoseEvent {
	return DoseEvent{UserID: user, MedicationID: med, ScheduledTime: at, Status: StatusMissed}
}

// atClock returns an event carrying explicit hour/day columns and no timestamp, the
// way log exports deliver them.
func atClock(e DoseEvent, hour, day int) DoseEvent {
	e.ScheduledTime = time.Time{}
	e.Hour = intp(hour)
	e.Day = intp(day)
	return e
}
