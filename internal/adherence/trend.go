package adherence

import "sort"

// DefaultTrendWindow is the number of weeks a report's trend covers.
const DefaultTrendWindow = 4

// WindowMode selects which weeks a weekly trend keeps.
type WindowMode string

const (
	// WindowInsertionOrder keeps the last N distinct weeks in the order they first
	// appear in the input. On unsorted input these are not the latest weeks.
	WindowInsertionOrder WindowMode = "insertion"
	// WindowChronological sorts week numbers ascending before keeping the last N.
	WindowChronological WindowMode = "chronological"
)

// ParseWindowMode maps a config string to a mode; anything unknown is insertion order.
func ParseWindowMode(s string) WindowMode {
	if WindowMode(s) == WindowChronological {
		return WindowChronological
	}
	return WindowInsertionOrder
}

// WeekStat is one week of the trend.
type WeekStat struct {
	Week int `json:"week"`
	RateStat
}

// Weekly buckets events by ISO week number and returns at most window weeks selected by
// mode. Week numbers ignore the ISO year, so week 1 of two different years share a
// bucket. Events without a timestamp are skipped.
func Weekly(events []DoseEvent, window int, mode WindowMode) []WeekStat {
	if window <= 0 {
		window = DefaultTrendWindow
	}

	var order []int
	stats := make(map[int]*RateStat)
	for _, e := range events {
		w, ok := e.ISOWeek()
		if !ok {
			continue
		}
		s, seen := stats[w]
		if !seen {
			s = &RateStat{}
			stats[w] = s
			order = append(order, w)
		}
		s.add(e)
	}

	if mode == WindowChronological {
		sort.Ints(order)
	}
	if len(order) > window {
		order = order[len(order)-window:]
	}

	out := make([]WeekStat, 0, len(order))
	for _, w := range order {
		s := stats[w]
		s.finish()
		out = append(out, WeekStat{Week: w, RateStat: *s})
	}
	return out
}
