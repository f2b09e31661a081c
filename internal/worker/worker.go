// Package worker drives queued schedule runs in the background. Runs are
// claimed through the store's queue so several instances can share one
// database without double-building a run.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"staffplan/internal/metrics"
	"staffplan/internal/model"
	"staffplan/internal/roster"
	"staffplan/internal/store"
)

type Worker struct {
	store    store.Store
	sched    *roster.Scheduler
	interval time.Duration
	log      zerolog.Logger

	// Notify, when set, is called after run state changes so the API can
	// fan events out to stream subscribers.
	Notify func(runID, event string, data map[string]any)
}

func New(st store.Store, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Worker{
		store:    st,
		sched:    roster.NewScheduler(st),
		interval: interval,
		log:      log.With().Str("component", "worker").Logger(),
	}
}

// Run polls the queue until ctx is canceled, draining all queued runs on
// each tick.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.Info().Dur("interval", w.interval).Msg("schedule worker started")
	for {
		for {
			processed, err := w.ProcessOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.log.Error().Err(err).Msg("queue claim failed")
			}
			if !processed {
				break
			}
		}
		select {
		case <-ctx.Done():
			w.log.Info().Msg("schedule worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce claims and executes at most one queued run. It reports
// whether a run was claimed; a run that fails to build still counts as
// processed since its failure is recorded on the run row.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	run, err := w.store.NextQueuedRun(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	w.log.Info().Str("runId", run.ID).Str("planId", run.PlanID).Msg("run claimed")
	w.notify(run.ID, "run.started", map[string]any{"planId": run.PlanID, "methodId": run.MethodID})

	start := time.Now()
	metric, err := w.sched.Execute(ctx, run.ID)
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RunsTotal.WithLabelValues(model.RunFailed).Inc()
		w.notify(run.ID, "run.failed", map[string]any{"error": err.Error()})
		return true, nil
	}

	metrics.RunsTotal.WithLabelValues(model.RunCompleted).Inc()
	w.notify(run.ID, "run.completed", map[string]any{
		"coveragePercent": metric.CoveragePercent,
		"gapMinutes":      metric.GapMinutes,
		"violationsCount": metric.ViolationsCount,
	})
	return true, nil
}

func (w *Worker) notify(runID, event string, data map[string]any) {
	if w.Notify != nil {
		w.Notify(runID, event, data)
	}
}
