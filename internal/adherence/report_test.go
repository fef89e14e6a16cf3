package adherence

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

func sampleEvents() []DoseEvent {
	var events []DoseEvent
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	hours := []int{8, 13, 20}
	for i := 0; i < 60; i++ {
		at := base.AddDate(0, 0, i/2).Add(time.Duration(hours[i%3]-8) * time.Hour)
		user := fmt.Sprintf("user_%d", i%8)
		med := fmt.Sprintf("med_%d", i%3)
		if i%4 == 0 {
			events = append(events, missed(user, med, at))
		} else {
			events = append(events, taken(user, med, at))
		}
	}
	return events
}

func TestAssembleMatchesParts(t *testing.T) {
	events := sampleEvents()
	a := Assembler{Now: fixedNow}

	r, err := a.Assemble(context.Background(), events)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if r.OverallAdherence != Overall(events) {
		t.Errorf("overall = %+v", r.OverallAdherence)
	}
	if !reflect.DeepEqual(r.ByTimeOfDay, ByTimeOfDay(events, ReportingDayParts)) {
		t.Errorf("by_time_of_day differs")
	}
	if !reflect.DeepEqual(r.ByDayOfWeek, ByDayOfWeek(events)) {
		t.Errorf("by_day_of_week differs")
	}
	if !reflect.DeepEqual(r.TopUsers, RankUsers(events, ReportTopUsers)) || len(r.TopUsers) != 5 {
		t.Errorf("top_users = %+v", r.TopUsers)
	}
	if !reflect.DeepEqual(r.MedicationComparison, CompareMedications(events)) {
		t.Errorf("medication_comparison differs")
	}
	if !reflect.DeepEqual(r.WeeklyTrends, Weekly(events, DefaultTrendWindow, WindowInsertionOrder)) {
		t.Errorf("weekly_trends differs")
	}
	if !r.GeneratedAt.Equal(fixedNow()) {
		t.Errorf("generated_at = %v", r.GeneratedAt)
	}
}

func TestAssembleEmpty(t *testing.T) {
	r, err := Assembler{Now: fixedNow}.Assemble(context.Background(), nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if r.OverallAdherence != (OverallStat{}) {
		t.Errorf("overall = %+v", r.OverallAdherence)
	}

	body, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, frag := range []string{
		`"overall_adherence":{"total_doses":0,"taken":0,"missed":0,"adherence_rate":0}`,
		`"by_time_of_day":{}`,
		`"by_day_of_week":{}`,
		`"top_users":[]`,
		`"medication_comparison":[]`,
		`"weekly_trends":[]`,
	} {
		if !strings.Contains(string(body), frag) {
			t.Errorf("report JSON missing %s\n%s", frag, body)
		}
	}
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Assembler{}).Assemble(ctx, sampleEvents()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestAssembleChronologicalMode(t *testing.T) {
	a := Assembler{TrendMode: WindowChronological, TrendWindow: 2, Now: fixedNow}
	r, err := a.Assemble(context.Background(), unsortedWeeks())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := weekNumbers(r.WeeklyTrends); !reflect.DeepEqual(got, []int{7, 10}) {
		t.Fatalf("weeks = %v", got)
	}
}
