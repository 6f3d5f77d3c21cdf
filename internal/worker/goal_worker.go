package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"envelopes/internal/services"
)

// GoalWorker evaluates every savings goal on a cron schedule, publishing
// milestone and warning notifications for goals whose progress crossed a
// threshold since the previous run.
type GoalWorker struct {
	cron  *cron.Cron
	goals *services.GoalService
	spec  string
}

func NewGoalWorker(goals *services.GoalService, cronSpec string) *GoalWorker {
	return &GoalWorker{
		cron:  cron.New(),
		goals: goals,
		spec:  cronSpec,
	}
}

// Register wires the evaluation job into the cron schedule.
func (w *GoalWorker) Register(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.spec, func() {
		w.evaluate(ctx)
	}); err != nil {
		return fmt.Errorf("register goal evaluation job: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (w *GoalWorker) Start() {
	w.cron.Start()
	slog.Info("Goal worker started", "schedule", w.spec)
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (w *GoalWorker) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	slog.Info("Goal worker stopped")
}

// RunNow triggers one evaluation pass immediately, outside the schedule.
func (w *GoalWorker) RunNow(ctx context.Context) {
	w.evaluate(ctx)
}

func (w *GoalWorker) evaluate(ctx context.Context) {
	start := time.Now()

	published, err := w.goals.EvaluateAllGoals(ctx, time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "Goal evaluation pass failed", "error", err)
		return
	}

	slog.InfoContext(ctx, "Goal evaluation pass completed",
		"notifications", published,
		"duration_ms", time.Since(start).Milliseconds())
}
