package adherence

import "sort"

// DayPart is one named hour range [From, To).
type DayPart struct {
	Label    string
	From, To int
}

// DayPartScheme classifies hours into named parts. Hours outside every part are
// dropped, unless Fallback names a catch-all part.
type DayPartScheme struct {
	Name     string
	Parts    []DayPart
	Fallback string
}

// ReportingDayParts is the three-bucket scheme of the adherence report. Night hours
// (0-5) fall in no bucket.
var ReportingDayParts = DayPartScheme{
	Name: "reporting",
	Parts: []DayPart{
		{Label: "Morning (6-12)", From: 6, To: 12},
		{Label: "Afternoon (12-18)", From: 12, To: 18},
		{Label: "Evening (18-24)", From: 18, To: 24},
	},
}

// AnalyticsDayParts is the four-bucket scheme of the chart analytics endpoint.
var AnalyticsDayParts = DayPartScheme{
	Name: "analytics",
	Parts: []DayPart{
		{Label: "Morning", From: 5, To: 12},
		{Label: "Afternoon", From: 12, To: 17},
		{Label: "Evening", From: 17, To: 22},
	},
	Fallback: "Night",
}

// Classify returns the part label for hour.
func (s DayPartScheme) Classify(hour int) (string, bool) {
	for _, p := range s.Parts {
		if hour >= p.From && hour < p.To {
			return p.Label, true
		}
	}
	if s.Fallback != "" {
		return s.Fallback, true
	}
	return "", false
}

// Labels lists every label the scheme can produce, in display order.
func (s DayPartScheme) Labels() []string {
	out := make([]string, 0, len(s.Parts)+1)
	for _, p := range s.Parts {
		out = append(out, p.Label)
	}
	if s.Fallback != "" {
		out = append(out, s.Fallback)
	}
	return out
}

// WeekdayNames is indexed by Monday-based weekday.
var WeekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ByTimeOfDay groups events by the scheme's parts. Events without an hour, or whose hour
// falls outside the scheme, are not counted.
func ByTimeOfDay(events []DoseEvent, scheme DayPartScheme) Breakdown {
	t := newTally()
	for _, e := range events {
		h, ok := e.HourOfDay()
		if !ok {
			continue
		}
		if label, ok := scheme.Classify(h); ok {
			t.add(label, e)
		}
	}
	return t.breakdown(scheme.Labels())
}

// ByDayOfWeek groups events by weekday name, Monday first. Days outside 0-6 are
// dropped.
func ByDayOfWeek(events []DoseEvent) Breakdown {
	t := newTally()
	for _, e := range events {
		d, ok := e.DayOfWeek()
		if !ok || d < 0 || d > 6 {
			continue
		}
		t.add(WeekdayNames[d], e)
	}
	return t.breakdown(WeekdayNames[:])
}

// DefaultTopUsers is the ranking length when callers pass n <= 0.
const DefaultTopUsers = 10

// UserStat is one row of the user ranking.
type UserStat struct {
	UserID        string  `json:"user_id"`
	TotalDoses    int     `json:"total_doses"`
	Taken         int     `json:"taken"`
	AdherenceRate float64 `json:"adherence_rate"`
}

// MedicationStat is one row of the medication comparison.
type MedicationStat struct {
	MedicationID  string  `json:"medication_id"`
	TotalDoses    int     `json:"total_doses"`
	Taken         int     `json:"taken"`
	AdherenceRate float64 `json:"adherence_rate"`
}

// RankUsers returns the top n users by adherence rate. Users enter in first-seen order
// and the sort is stable, so equal rates keep that order.
func RankUsers(events []DoseEvent, n int) []UserStat {
	if n <= 0 {
		n = DefaultTopUsers
	}
	t := newTally()
	for _, e := range events {
		t.add(e.UserID, e)
	}
	groups := rankByRate(t.breakdown(t.order))

	out := make([]UserStat, 0, min(n, len(groups)))
	for _, g := range groups[:min(n, len(groups))] {
		out = append(out, UserStat{UserID: g.Key, TotalDoses: g.Total, Taken: g.Taken, AdherenceRate: g.Rate})
	}
	return out
}

// CompareMedications returns every medication ordered by adherence rate, stable on ties.
func CompareMedications(events []DoseEvent) []MedicationStat {
	t := newTally()
	for _, e := range events {
		t.add(e.MedicationID, e)
	}
	groups := rankByRate(t.breakdown(t.order))

	out := make([]MedicationStat, 0, len(groups))
	for _, g := range groups {
		out = append(out, MedicationStat{MedicationID: g.Key, TotalDoses: g.Total, Taken: g.Taken, AdherenceRate: g.Rate})
	}
	return out
}

func rankByRate(b Breakdown) Breakdown {
	sort.SliceStable(b, func(i, j int) bool { return b[i].Rate > b[j].Rate })
	return b
}
