package adherence

import (
	"sort"
	"time"
)

// Dashboard is the compact view the mobile app renders on its home screen.
type Dashboard struct {
	Summary        DashboardSummary `json:"summary"`
	WeeklyProgress []DayProgress    `json:"weekly_progress"`
	BestTime       string           `json:"best_time"`
}

type DashboardSummary struct {
	AdherenceRate float64 `json:"adherence_rate"`
	TotalDoses    int     `json:"total_doses"`
	StreakDays    int     `json:"streak_days"`
}

type DayProgress struct {
	Day  string  `json:"day"`
	Rate float64 `json:"rate"`
}

// BuildDashboard derives the dashboard from a report and the events it was built from.
// Days without doses show a rate of 0. BestTime is the time-of-day bucket with the
// highest rate, the earliest bucket winning ties, or "" when there are none.
func BuildDashboard(r *Report, events []DoseEvent) Dashboard {
	d := Dashboard{
		Summary: DashboardSummary{
			AdherenceRate: r.OverallAdherence.AdherenceRate,
			TotalDoses:    r.OverallAdherence.TotalDoses,
			StreakDays:    StreakDays(events),
		},
		WeeklyProgress: make([]DayProgress, 0, len(WeekdayNames)),
	}
	for _, name := range WeekdayNames {
		s, _ := r.ByDayOfWeek.Get(name)
		d.WeeklyProgress = append(d.WeeklyProgress, DayProgress{Day: name[:3], Rate: s.Rate})
	}

	best := -1.0
	for _, g := range r.ByTimeOfDay {
		if g.Rate > best {
			best = g.Rate
			d.BestTime = g.Key
		}
	}
	return d
}

// StreakDays counts consecutive calendar days, going back from the most recent scheduled
// day, on which every dose was taken. A day with a miss or a day with no doses ends the
// streak.
func StreakDays(events []DoseEvent) int {
	type day struct{ y, m, d int }
	perfect := make(map[day]bool)
	for _, e := range events {
		if e.ScheduledTime.IsZero() {
			continue
		}
		y, m, dd := e.ScheduledTime.Date()
		k := day{y, int(m), dd}
		ok, seen := perfect[k]
		perfect[k] = (ok || !seen) && e.Taken()
	}
	if len(perfect) == 0 {
		return 0
	}

	dates := make([]time.Time, 0, len(perfect))
	for k := range perfect {
		dates = append(dates, time.Date(k.y, time.Month(k.m), k.d, 0, 0, 0, 0, time.UTC))
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	streak := 0
	expect := dates[0]
	for _, t := range dates {
		if !t.Equal(expect) {
			break
		}
		y, m, dd := t.Date()
		if !perfect[day{y, int(m), dd}] {
			break
		}
		streak++
		expect = t.AddDate(0, 0, -1)
	}
	return streak
}

// DayPattern is one weekday of a weekly adherence pattern.
type DayPattern struct {
	Day           string  `json:"day"`
	AdherenceRate float64 `json:"adherence_rate"`
}

// WeekdayPattern returns the adherence rate for every weekday, Monday first. Days
// without doses are listed with a rate of 0.
func WeekdayPattern(events []DoseEvent) []DayPattern {
	b := ByDayOfWeek(events)
	out := make([]DayPattern, 0, len(WeekdayNames))
	for _, name := range WeekdayNames {
		s, _ := b.Get(name)
		out = append(out, DayPattern{Day: name, AdherenceRate: s.Rate})
	}
	return out
}
