// Package jobs runs the named maintenance jobs behind the cron entry
// points. Each job is registered under a unique name and runs in
// isolation: one job failing never skips or aborts the others.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// JobFunc is one unit of scheduled work.
type JobFunc func(ctx context.Context) error

// Result reports one job execution. Callers render it into their own
// response or output shapes; it is never marshaled directly.
type Result struct {
	Name     string
	RunID    string
	Duration time.Duration
	Err      error
}

// Status returns "ok" or "failed" for response payloads.
func (r Result) Status() string {
	if r.Err != nil {
		return "failed"
	}
	return "ok"
}

// Runner holds the registered jobs.
type Runner struct {
	logger zerolog.Logger
	names  []string
	jobs   map[string]JobFunc
}

func NewRunner(logger zerolog.Logger) *Runner {
	return &Runner{
		logger: logger,
		jobs:   make(map[string]JobFunc),
	}
}

// Register adds one named job. Names must be unique.
func (r *Runner) Register(name string, fn JobFunc) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("job name is required")
	}
	if fn == nil {
		return fmt.Errorf("job %q has no function", trimmed)
	}
	if _, exists := r.jobs[trimmed]; exists {
		return fmt.Errorf("job %q is already registered", trimmed)
	}
	r.jobs[trimmed] = fn
	r.names = append(r.names, trimmed)
	return nil
}

// JobNames lists registered jobs in registration order.
func (r *Runner) JobNames() []string {
	return append([]string(nil), r.names...)
}

// RunAll executes every registered job in registration order and
// returns one result per job. Failures are logged and collected, never
// propagated to sibling jobs.
func (r *Runner) RunAll(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.names))
	for _, name := range r.names {
		results = append(results, r.runOne(ctx, name, r.jobs[name]))
	}
	return results
}

// Run executes the named jobs only. Unknown names produce a failed
// result instead of an error so a partial list still runs.
func (r *Runner) Run(ctx context.Context, names []string) []Result {
	results := make([]Result, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		fn, exists := r.jobs[trimmed]
		if !exists {
			results = append(results, Result{
				Name:  trimmed,
				RunID: uuid.NewString(),
				Err:   fmt.Errorf("job %q is not registered (available: %s)", trimmed, strings.Join(r.sortedNames(), ", ")),
			})
			continue
		}
		results = append(results, r.runOne(ctx, trimmed, fn))
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, name string, fn JobFunc) Result {
	runID := uuid.NewString()
	started := time.Now()

	r.logger.Info().
		Str("job", name).
		Str("run_id", runID).
		Msg("job started")

	err := runGuarded(ctx, fn)
	duration := time.Since(started)

	event := r.logger.Info()
	if err != nil {
		event = r.logger.Error().Err(err)
	}
	event.
		Str("job", name).
		Str("run_id", runID).
		Dur("duration", duration).
		Msg("job finished")

	return Result{
		Name:     name,
		RunID:    runID,
		Duration: duration,
		Err:      err,
	}
}

// runGuarded converts a job panic into an error so the remaining jobs
// still run.
func runGuarded(ctx context.Context, fn JobFunc) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("job panicked: %v", recovered)
		}
	}()
	return fn(ctx)
}

func (r *Runner) sortedNames() []string {
	names := r.JobNames()
	sort.Strings(names)
	return names
}
