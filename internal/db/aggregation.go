package db

import (
	"context"
	"time"

	"medadherence/internal/adherence"
	"medadherence/internal/logging"
)

// runSnapshotOnce assembles the all-users report and one report per user from every
// stored log and saves them as snapshots. Users with no logs get no snapshot.
func runSnapshotOnce(ctx context.Context, store *Store, asm adherence.Assembler) (int, error) {
	events, err := store.ListDoses(ctx, Filter{})
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	byUser := make(map[string][]adherence.DoseEvent)
	var users []string
	for _, e := range events {
		if _, ok := byUser[e.UserID]; !ok {
			users = append(users, e.UserID)
		}
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	report, err := asm.Assemble(ctx, events)
	if err != nil {
		return 0, err
	}
	if _, err := store.SaveSnapshot(ctx, "", report); err != nil {
		return 0, err
	}
	saved := 1

	for _, u := range users {
		if u == "" {
			continue
		}
		r, err := asm.Assemble(ctx, byUser[u])
		if err != nil {
			return saved, err
		}
		if _, err := store.SaveSnapshot(ctx, u, r); err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

// StartSnapshotWorker snapshots reports at startup and then every interval until ctx is
// done. onSnapshot, if set, is called with the number of snapshots written per pass.
func StartSnapshotWorker(ctx context.Context, store *Store, asm adherence.Assembler, interval time.Duration, onSnapshot func(int)) {
	if interval <= 0 {
		return
	}
	log := logging.With().Str("worker", "snapshot").Logger()

	run := func() {
		n, err := runSnapshotOnce(ctx, store, asm)
		if err != nil {
			log.Error().Err(err).Msg("snapshot pass failed")
			return
		}
		log.Debug().Int("snapshots", n).Msg("snapshot pass complete")
		if onSnapshot != nil {
			onSnapshot(n)
		}
	}

	go func() {
		run()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
