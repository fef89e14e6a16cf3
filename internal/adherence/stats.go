package adherence

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// RateStat is the adherence of one group of events.
type RateStat struct {
	Total int     `json:"total"`
	Taken int     `json:"taken"`
	Rate  float64 `json:"rate"`
}

// OverallStat is RateStat plus the missed count, with the report's field names.
type OverallStat struct {
	TotalDoses    int     `json:"total_doses"`
	Taken         int     `json:"taken"`
	Missed        int     `json:"missed"`
	AdherenceRate float64 `json:"adherence_rate"`
}

// Rate counts taken events over all events. An empty slice yields the zero stat.
func Rate(events []DoseEvent) RateStat {
	var s RateStat
	for _, e := range events {
		s.add(e)
	}
	s.finish()
	return s
}

// Overall is Rate in the overall-report shape.
func Overall(events []DoseEvent) OverallStat {
	s := Rate(events)
	return OverallStat{
		TotalDoses:    s.Total,
		Taken:         s.Taken,
		Missed:        s.Total - s.Taken,
		AdherenceRate: s.Rate,
	}
}

func (s *RateStat) add(e DoseEvent) {
	s.Total++
	if e.Taken() {
		s.Taken++
	}
}

func (s *RateStat) finish() {
	s.Rate = percent(s.Taken, s.Total)
}

func percent(taken, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(taken)/float64(total)*100, 2)
}

// round rounds the exact binary value of x to places decimals. Exact ties go to the
// even digit, so 1/32 of 100 (3.125) rounds to 3.12.
func round(x float64, places int) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	return r
}

// Group is one keyed entry of a Breakdown.
type Group struct {
	Key string
	RateStat
}

// Breakdown is an ordered key -> RateStat mapping. It marshals as a JSON object whose
// keys keep the breakdown's order.
type Breakdown []Group

// Get returns the stat for key.
func (b Breakdown) Get(key string) (RateStat, bool) {
	for _, g := range b {
		if g.Key == key {
			return g.RateStat, true
		}
	}
	return RateStat{}, false
}

// Keys returns the group keys in order.
func (b Breakdown) Keys() []string {
	keys := make([]string, len(b))
	for i, g := range b {
		keys[i] = g.Key
	}
	return keys
}

func (b Breakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(g.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(g.RateStat)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *Breakdown) UnmarshalJSON(data []byte) error {
	// Key order is lost on the way back in; callers that persist reports only read
	// individual keys.
	var m map[string]RateStat
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	out := make(Breakdown, 0, len(m))
	for k, v := range m {
		out = append(out, Group{Key: k, RateStat: v})
	}
	*b = out
	return nil
}

// tally accumulates per-key stats while remembering first-seen key order.
type tally struct {
	order []string
	stats map[string]*RateStat
}

func newTally() *tally {
	return &tally{stats: make(map[string]*RateStat)}
}

func (t *tally) add(key string, e DoseEvent) {
	s, ok := t.stats[key]
	if !ok {
		s = &RateStat{}
		t.stats[key] = s
		t.order = append(t.order, key)
	}
	s.add(e)
}

// breakdown emits groups in the given key order, skipping keys never seen.
func (t *tally) breakdown(keys []string) Breakdown {
	out := make(Breakdown, 0, len(keys))
	for _, k := range keys {
		s, ok := t.stats[k]
		if !ok {
			continue
		}
		s.finish()
		out = append(out, Group{Key: k, RateStat: *s})
	}
	return out
}
