package adherence

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// ReportTopUsers is the user ranking length used by reports.
const ReportTopUsers = 5

// Report is an immutable snapshot of one batch of events.
type Report struct {
	GeneratedAt          time.Time        `json:"generated_at"`
	OverallAdherence     OverallStat      `json:"overall_adherence"`
	ByTimeOfDay          Breakdown        `json:"by_time_of_day"`
	ByDayOfWeek          Breakdown        `json:"by_day_of_week"`
	TopUsers             []UserStat       `json:"top_users"`
	MedicationComparison []MedicationStat `json:"medication_comparison"`
	WeeklyTrends         []WeekStat       `json:"weekly_trends"`
}

// Assembler composes reports. The zero value uses the default window, insertion-order
// trend selection and the wall clock.
type Assembler struct {
	TopUsers    int
	TrendWindow int
	TrendMode   WindowMode
	Now         func() time.Time
}

// Assemble builds the report for events. The breakdowns are independent and computed
// concurrently.
func (a Assembler) Assemble(ctx context.Context, events []DoseEvent) (*Report, error) {
	topUsers := a.TopUsers
	if topUsers <= 0 {
		topUsers = ReportTopUsers
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := &Report{GeneratedAt: now().UTC()}

	var g errgroup.Group
	g.Go(func() error {
		r.OverallAdherence = Overall(events)
		return nil
	})
	g.Go(func() error {
		r.ByTimeOfDay = ByTimeOfDay(events, ReportingDayParts)
		return nil
	})
	g.Go(func() error {
		r.ByDayOfWeek = ByDayOfWeek(events)
		return nil
	})
	g.Go(func() error {
		r.TopUsers = RankUsers(events, topUsers)
		return nil
	})
	g.Go(func() error {
		r.MedicationComparison = CompareMedications(events)
		return nil
	})
	g.Go(func() error {
		r.WeeklyTrends = Weekly(events, a.TrendWindow, a.TrendMode)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}
