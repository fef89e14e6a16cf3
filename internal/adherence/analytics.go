package adherence

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// Count is one keyed tally of taken doses.
type Count struct {
	Key string
	N   int
}

// Counts is an ordered key -> count mapping that marshals as a JSON object.
type Counts []Count

func (c Counts) Get(key string) int {
	for _, x := range c {
		if x.Key == key {
			return x.N
		}
	}
	return 0
}

func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, x := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(x.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(x.N))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AnalyticsSummary feeds the mobile charts: overall rate plus taken-dose counts per
// weekday and per four-part day.
type AnalyticsSummary struct {
	AdherenceRate  float64 `json:"adherence_rate"`
	TotalDoses     int     `json:"total_doses"`
	WeeklyTrend    Counts  `json:"weekly_trend"`
	TimeOfDayStats Counts  `json:"time_of_day_stats"`
}

// Analyze summarises chart logs. Only taken doses are counted in the breakdowns, and
// only those with a parsed timestamp; zero-count keys are omitted.
func Analyze(events []DoseEvent) AnalyticsSummary {
	overall := Rate(events)
	out := AnalyticsSummary{
		AdherenceRate:  overall.Rate,
		TotalDoses:     overall.Total,
		WeeklyTrend:    Counts{},
		TimeOfDayStats: Counts{},
	}

	var days [7]int
	parts := make(map[string]int)
	for _, e := range events {
		if !e.Taken() || e.ScheduledTime.IsZero() {
			continue
		}
		if d, ok := e.DayOfWeek(); ok && d >= 0 && d < 7 {
			days[d]++
		}
		if h, ok := e.HourOfDay(); ok {
			if label, ok := AnalyticsDayParts.Classify(h); ok {
				parts[label]++
			}
		}
	}

	for d, n := range days {
		if n > 0 {
			out.WeeklyTrend = append(out.WeeklyTrend, Count{Key: WeekdayNames[d], N: n})
		}
	}
	for _, label := range AnalyticsDayParts.Labels() {
		if n := parts[label]; n > 0 {
			out.TimeOfDayStats = append(out.TimeOfDayStats, Count{Key: label, N: n})
		}
	}
	return out
}
