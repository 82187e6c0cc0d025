package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/innovatopia-jp/sourcedesk/internal/db"
)

// HeartbeatName is the registration name of the built-in stats job.
const HeartbeatName = "stats-heartbeat"

type statsStore interface {
	TotalStateCounts(ctx context.Context) (db.StateCounts, error)
}

// Heartbeat returns the built-in job that logs a lifecycle snapshot of
// the source table. It doubles as a liveness probe for the database.
func Heartbeat(store statsStore, logger zerolog.Logger) JobFunc {
	return func(ctx context.Context) error {
		counts, err := store.TotalStateCounts(ctx)
		if err != nil {
			return fmt.Errorf("load state counts: %w", err)
		}

		logger.Info().
			Int64("working", counts.Working).
			Int64("done", counts.Done).
			Int64("aborted", counts.Aborted).
			Msg("source lifecycle snapshot")
		return nil
	}
}
