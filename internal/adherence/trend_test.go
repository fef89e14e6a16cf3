package adherence

import (
	"reflect"
	"testing"
	"time"
)

func week(n int) time.Time {
	// 2024-01-01 is the Monday of ISO week 1.
	return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC).AddDate(0, 0, 7*(n-1))
}

func weekNumbers(ws []WeekStat) []int {
	out := make([]int, len(ws))
	for i, w := range ws {
		out[i] = w.Week
	}
	return out
}

func unsortedWeeks() []DoseEvent {
	return []DoseEvent{
		taken("u", "m", week(10)),
		missed("u", "m", week(3)),
		taken("u", "m", week(7)),
		taken("u", "m", week(5)),
		taken("u", "m", week(1)),
		taken("u", "m", week(3)),
		{UserID: "u", MedicationID: "m", Status: StatusMissed}, // no timestamp
	}
}

func TestWeeklyInsertionOrder(t *testing.T) {
	got := Weekly(unsortedWeeks(), 4, WindowInsertionOrder)

	if want := []int{3, 7, 5, 1}; !reflect.DeepEqual(weekNumbers(got), want) {
		t.Fatalf("weeks = %v, want %v", weekNumbers(got), want)
	}
	if got[0].RateStat != (RateStat{Total: 2, Taken: 1, Rate: 50}) {
		t.Fatalf("week 3 = %+v", got[0])
	}

	monotonic := true
	for i := 1; i < len(got); i++ {
		if got[i].Week < got[i-1].Week {
			monotonic = false
		}
	}
	if monotonic {
		t.Fatal("insertion-order window on unsorted input should not be chronological")
	}
}

func TestWeeklyChronological(t *testing.T) {
	got := Weekly(unsortedWeeks(), 4, WindowChronological)
	if want := []int{3, 5, 7, 10}; !reflect.DeepEqual(weekNumbers(got), want) {
		t.Fatalf("weeks = %v, want %v", weekNumbers(got), want)
	}
}

func TestWeeklyLength(t *testing.T) {
	events := []DoseEvent{taken("u", "m", week(2)), taken("u", "m", week(2)), missed("u", "m", week(4))}
	for _, window := range []int{1, 2, 4, 10} {
		got := Weekly(events, window, WindowInsertionOrder)
		if want := min(window, 2); len(got) != want {
			t.Errorf("window %d: len = %d, want %d", window, len(got), want)
		}
	}
	if got := Weekly(nil, 4, WindowInsertionOrder); len(got) != 0 {
		t.Errorf("empty input produced %v", got)
	}
	if got := Weekly(events, 0, WindowInsertionOrder); len(got) != 2 {
		t.Errorf("default window produced %d weeks", len(got))
	}
}

func TestParseWindowMode(t *testing.T) {
	if ParseWindowMode("chronological") != WindowChronological {
		t.Error("chronological not parsed")
	}
	for _, s := range []string{"", "insertion", "latest"} {
		if ParseWindowMode(s) != WindowInsertionOrder {
			t.Errorf("ParseWindowMode(%q) should default to insertion order", s)
		}
	}
}
