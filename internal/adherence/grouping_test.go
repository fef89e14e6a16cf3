package adherence

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

func TestSingleTakenMondayMorning(t *testing.T) {
	events := []DoseEvent{atClock(taken("u1", "m1", monday09), 8, 0)}

	if o := Overall(events); o.AdherenceRate != 100 {
		t.Fatalf("overall rate = %v", o.AdherenceRate)
	}
	want := RateStat{Total: 1, Taken: 1, Rate: 100}
	if got, ok := ByDayOfWeek(events).Get("Monday"); !ok || got != want {
		t.Fatalf("Monday = %+v,%v", got, ok)
	}
	if got, ok := ByTimeOfDay(events, ReportingDayParts).Get("Morning (6-12)"); !ok || got != want {
		t.Fatalf("Morning = %+v,%v", got, ok)
	}
}

func TestEmptyBreakdowns(t *testing.T) {
	if b := ByTimeOfDay(nil, ReportingDayParts); len(b) != 0 {
		t.Errorf("ByTimeOfDay = %v", b)
	}
	if b := ByDayOfWeek(nil); len(b) != 0 {
		t.Errorf("ByDayOfWeek = %v", b)
	}
	if u := RankUsers(nil, 5); len(u) != 0 {
		t.Errorf("RankUsers = %v", u)
	}
	if m := CompareMedications(nil); len(m) != 0 {
		t.Errorf("CompareMedications = %v", m)
	}
}

func TestReportingDayPartsBoundaries(t *testing.T) {
	tests := []struct {
		hour int
		want string
		ok   bool
	}{
		{0, "", false},
		{5, "", false},
		{6, "Morning (6-12)", true},
		{11, "Morning (6-12)", true},
		{12, "Afternoon (12-18)", true},
		{17, "Afternoon (12-18)", true},
		{18, "Evening (18-24)", true},
		{23, "Evening (18-24)", true},
	}
	for _, tt := range tests {
		got, ok := ReportingDayParts.Classify(tt.hour)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Classify(%d) = %q,%v want %q,%v", tt.hour, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAnalyticsDayPartsBoundaries(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{4, "Night"},
		{5, "Morning"},
		{11, "Morning"},
		{12, "Afternoon"},
		{16, "Afternoon"},
		{17, "Evening"},
		{21, "Evening"},
		{22, "Night"},
		{23, "Night"},
	}
	for _, tt := range tests {
		if got, ok := AnalyticsDayParts.Classify(tt.hour); !ok || got != tt.want {
			t.Errorf("Classify(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestByTimeOfDayExcludesNight(t *testing.T) {
	events := []DoseEvent{
		atClock(taken("u", "m", monday09), 3, 0),
		atClock(missed("u", "m", monday09), 13, 0),
		atClock(taken("u", "m", monday09), 20, 0),
	}
	b := ByTimeOfDay(events, ReportingDayParts)
	if got := b.Keys(); !reflect.DeepEqual(got, []string{"Afternoon (12-18)", "Evening (18-24)"}) {
		t.Fatalf("keys = %v", got)
	}
	sum := 0
	for _, g := range b {
		sum += g.Total
	}
	if sum != 2 {
		t.Fatalf("night dose counted: total %d", sum)
	}

	if n := len(ByTimeOfDay(events, AnalyticsDayParts)); n > 4 {
		t.Fatalf("analytics scheme produced %d buckets", n)
	}
}

func TestByDayOfWeekOrder(t *testing.T) {
	events := []DoseEvent{
		atClock(taken("u", "m", monday09), 9, 6),
		atClock(taken("u", "m", monday09), 9, 2),
		atClock(missed("u", "m", monday09), 9, 0),
		atClock(taken("u", "m", monday09), 9, 2),
		atClock(taken("u", "m", monday09), 9, 9), // out of range, dropped
	}
	b := ByDayOfWeek(events)
	if got := b.Keys(); !reflect.DeepEqual(got, []string{"Monday", "Wednesday", "Sunday"}) {
		t.Fatalf("keys = %v", got)
	}
	if len(b) > 7 {
		t.Fatalf("more than seven weekdays")
	}
	if s, _ := b.Get("Wednesday"); s != (RateStat{Total: 2, Taken: 2, Rate: 100}) {
		t.Fatalf("Wednesday = %+v", s)
	}
}

func TestByDayOfWeekFromTimestamp(t *testing.T) {
	sunday := time.Date(2024, 1, 14, 19, 0, 0, 0, time.UTC)
	b := ByDayOfWeek([]DoseEvent{missed("u", "m", sunday), {UserID: "u", Status: StatusMissed}})
	if got := b.Keys(); !reflect.DeepEqual(got, []string{"Sunday"}) {
		t.Fatalf("keys = %v", got)
	}
}

func TestRankUsers(t *testing.T) {
	events := []DoseEvent{
		missed("alice", "m", monday09),
		taken("bob", "m", monday09),
		taken("carol", "m", monday09),
		taken("alice", "m", monday09),
		missed("dave", "m", monday09),
	}
	got := RankUsers(events, 10)

	ids := make([]string, len(got))
	for i, u := range got {
		ids[i] = u.UserID
	}
	// bob and carol tie at 100 and keep first-seen order.
	if want := []string{"bob", "carol", "alice", "dave"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ranking = %v, want %v", ids, want)
	}
	if got[2] != (UserStat{UserID: "alice", TotalDoses: 2, Taken: 1, AdherenceRate: 50}) {
		t.Fatalf("alice = %+v", got[2])
	}
	for i := 1; i < len(got); i++ {
		if got[i].AdherenceRate > got[i-1].AdherenceRate {
			t.Fatalf("ranking not non-increasing at %d", i)
		}
	}
}

func TestRankUsersTruncates(t *testing.T) {
	var events []DoseEvent
	for i := 0; i < 12; i++ {
		events = append(events, taken(fmt.Sprintf("u%02d", i), "m", monday09))
	}
	if n := len(RankUsers(events, 5)); n != 5 {
		t.Errorf("top 5 returned %d", n)
	}
	if n := len(RankUsers(events, 0)); n != DefaultTopUsers {
		t.Errorf("default ranking returned %d", n)
	}
	if n := len(RankUsers(events[:3], 5)); n != 3 {
		t.Errorf("ranking of 3 users returned %d", n)
	}
}

func TestCompareMedications(t *testing.T) {
	events := []DoseEvent{
		missed("u", "med_1", monday09),
		taken("u", "med_2", monday09),
		taken("u", "med_1", monday09),
		missed("u", "med_3", monday09),
	}
	got := CompareMedications(events)
	want := []MedicationStat{
		{MedicationID: "med_2", TotalDoses: 1, Taken: 1, AdherenceRate: 100},
		{MedicationID: "med_1", TotalDoses: 2, Taken: 1, AdherenceRate: 50},
		{MedicationID: "med_3", TotalDoses: 1, Taken: 0, AdherenceRate: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CompareMedications = %+v", got)
	}
}

func TestGroupTakenNeverExceedsOverall(t *testing.T) {
	var events []DoseEvent
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		at := base.Add(time.Duration(i*7) * time.Hour)
		if i%3 == 0 {
			events = append(events, missed(fmt.Sprintf("u%d", i%7), fmt.Sprintf("m%d", i%4), at))
		} else {
			events = append(events, taken(fmt.Sprintf("u%d", i%7), fmt.Sprintf("m%d", i%4), at))
		}
	}
	overall := Overall(events)

	for name, b := range map[string]Breakdown{
		"time":    ByTimeOfDay(events, ReportingDayParts),
		"weekday": ByDayOfWeek(events),
	} {
		sum := 0
		for _, g := range b {
			sum += g.Taken
			if g.Rate < 0 || g.Rate > 100 {
				t.Errorf("%s %s rate %v out of range", name, g.Key, g.Rate)
			}
		}
		if sum > overall.Taken {
			t.Errorf("%s taken %d > overall %d", name, sum, overall.Taken)
		}
	}
}
