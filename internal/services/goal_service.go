package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"envelopes/internal/amqp"
	"envelopes/internal/amortize"
	"envelopes/internal/cache"
	"envelopes/internal/core"
	"envelopes/internal/forecast"
	"envelopes/internal/goal"
	"envelopes/internal/notify"
	"envelopes/internal/storage"
)

var (
	ErrNotSavingsGoal = errors.New("envelope is not a savings goal")
	ErrNoTargetDate   = errors.New("envelope has no target date")
)

// GoalStore is the storage surface the goal service needs. Satisfied by
// storage.SQLiteRepository.
type GoalStore interface {
	GetEnvelope(ctx context.Context, id int64) (core.Envelope, error)
	ListEnvelopesByType(ctx context.Context, t core.EnvelopeType) ([]core.Envelope, error)
	ListTransactions(ctx context.Context, envelopeID int64) ([]core.Transaction, error)
	GetGoalSnapshot(ctx context.Context, envelopeID int64) (storage.GoalSnapshot, error)
	SaveGoalSnapshot(ctx context.Context, s storage.GoalSnapshot) error
}

// NotificationPublisher publishes goal notifications to the message broker.
// Satisfied by amqp.Client.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}

// GoalService computes debt and savings goal analytics on top of envelope
// transactions
type GoalService struct {
	store     GoalStore
	cache     cache.StringCache
	publisher NotificationPublisher
	evaluator *notify.Evaluator
}

func NewGoalService(store GoalStore, stringCache cache.StringCache, publisher NotificationPublisher) *GoalService {
	return &GoalService{
		store:     store,
		cache:     stringCache,
		publisher: publisher,
		evaluator: notify.NewEvaluator(nil),
	}
}

// DebtSummary bundles everything a debt envelope view needs
type DebtSummary struct {
	Envelope   core.Envelope             `json:"envelope"`
	Progress   amortize.Progress         `json:"progress"`
	Projection amortize.PayoffProjection `json:"projection"`
	Strategies []amortize.Strategy       `json:"strategies"`
	Schedule   []amortize.ScheduleEntry  `json:"schedule"`
}

// DebtSummary computes payoff progress, projection, strategies and the
// amortization schedule for a debt envelope.
func (s *GoalService) DebtSummary(ctx context.Context, envelopeID int64, now time.Time) (DebtSummary, error) {
	env, err := s.store.GetEnvelope(ctx, envelopeID)
	if err != nil {
		return DebtSummary{}, err
	}

	txs, err := s.store.ListTransactions(ctx, envelopeID)
	if err != nil {
		return DebtSummary{}, fmt.Errorf("list transactions: %w", err)
	}

	progress, err := amortize.CalculateDebtProgress(env, txs)
	if err != nil {
		return DebtSummary{}, err
	}

	balance := env.Balance.Amount()
	payment := env.MinimumPayment.Amount()

	summary := DebtSummary{
		Envelope:   env,
		Progress:   progress,
		Projection: amortize.CalculatePayoffProjection(balance, env.APR, payment, now),
		Strategies: amortize.CompareStrategies(balance, env.APR, payment, now),
		Schedule:   amortize.GenerateSchedule(balance, env.APR, payment, 0, now),
	}

	slog.InfoContext(ctx, "Computed debt summary",
		"envelope_id", envelopeID,
		"progress_pct", progress.ProgressPercentage,
		"reachable", summary.Projection.Reachable)

	return summary, nil
}

// GoalOverview bundles progress, milestones and velocity for a savings goal
type GoalOverview struct {
	Envelope    core.Envelope         `json:"envelope"`
	Progress    goal.Progress         `json:"progress"`
	Milestones  []goal.Milestone      `json:"milestones"`
	Velocity    goal.Velocity         `json:"velocity"`
	StatusColor string                `json:"status_color"`
	StatusText  string                `json:"status_text"`
	Plan        goal.ContributionPlan `json:"plan,omitempty"`
}

// GoalOverview computes the full progress view for a savings envelope.
func (s *GoalService) GoalOverview(ctx context.Context, envelopeID int64, now time.Time) (GoalOverview, error) {
	env, err := s.savingsGoal(ctx, envelopeID)
	if err != nil {
		return GoalOverview{}, err
	}

	progress, err := goal.CalculateProgress(
		env.Balance.Amount(),
		env.TargetAmount.Amount(),
		env.TargetDate.Time,
		env.CreatedAt,
		now,
	)
	if err != nil {
		return GoalOverview{}, err
	}

	txs, err := s.store.ListTransactions(ctx, envelopeID)
	if err != nil {
		return GoalOverview{}, fmt.Errorf("list transactions: %w", err)
	}

	overview := GoalOverview{
		Envelope:    env,
		Progress:    progress,
		Milestones:  goal.Milestones(progress),
		Velocity:    goal.CalculateVelocity(velocityPoints(txs)),
		StatusColor: goal.StatusColor(progress),
		StatusText:  goal.StatusText(progress),
	}

	if !env.TargetDate.IsEmpty() {
		plan, err := goal.CalculateOptimalContribution(
			env.Balance.Amount(), env.TargetAmount.Amount(), env.TargetDate.Time, now)
		if err == nil {
			overview.Plan = plan
		}
	}

	return overview, nil
}

// Projection estimates where the goal lands given a monthly contribution.
func (s *GoalService) Projection(ctx context.Context, envelopeID int64, monthlyContribution float64, now time.Time) (goal.Projection, error) {
	env, err := s.savingsGoal(ctx, envelopeID)
	if err != nil {
		return goal.Projection{}, err
	}
	if env.TargetDate.IsEmpty() {
		return goal.Projection{}, ErrNoTargetDate
	}

	return goal.CalculateProjection(
		env.Balance.Amount(), env.TargetAmount.Amount(),
		env.TargetDate.Time, monthlyContribution, now)
}

// WhatIf evaluates a set of candidate monthly contributions for a goal.
func (s *GoalService) WhatIf(ctx context.Context, envelopeID int64, contributions []float64, now time.Time) ([]goal.WhatIfScenario, error) {
	env, err := s.savingsGoal(ctx, envelopeID)
	if err != nil {
		return nil, err
	}

	return goal.CalculateWhatIfScenarios(
		env.Balance.Amount(), env.TargetAmount.Amount(),
		env.TargetDate.Time, contributions, now)
}

// Forecast projects conservative, realistic and optimistic completion
// scenarios from contribution history. Results are cached because history
// analysis walks every transaction of the envelope.
func (s *GoalService) Forecast(ctx context.Context, envelopeID int64, now time.Time) (forecast.Forecast, error) {
	key := forecastCacheKey(envelopeID)

	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			var cached forecast.Forecast
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				slog.DebugContext(ctx, "Forecast cache hit", "envelope_id", envelopeID)
				return cached, nil
			}
			// Corrupt entry, drop it and recompute
			_ = s.cache.Delete(key)
		}
	}

	env, err := s.savingsGoal(ctx, envelopeID)
	if err != nil {
		return forecast.Forecast{}, err
	}
	if env.TargetDate.IsEmpty() {
		return forecast.Forecast{}, ErrNoTargetDate
	}

	txs, err := s.store.ListTransactions(ctx, envelopeID)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("list transactions: %w", err)
	}

	history := forecast.AnalyzeHistory(txs, env.CreatedAt)

	result, err := forecast.ProjectScenarios(
		env.Balance.Amount(), env.TargetAmount.Amount(),
		env.TargetDate.Time, history, now)
	if err != nil {
		return forecast.Forecast{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(key, string(raw)); err != nil {
				slog.WarnContext(ctx, "Failed to cache forecast",
					"envelope_id", envelopeID, "error", err)
			}
		}
	}

	return result, nil
}

// EvaluateGoal recomputes progress for a savings envelope, fires notification
// rules against the previous snapshot, publishes the resulting notifications
// and records the new snapshot.
func (s *GoalService) EvaluateGoal(ctx context.Context, envelopeID int64, now time.Time) ([]notify.Notification, error) {
	env, err := s.savingsGoal(ctx, envelopeID)
	if err != nil {
		return nil, err
	}

	curr, err := goal.CalculateProgress(
		env.Balance.Amount(), env.TargetAmount.Amount(),
		env.TargetDate.Time, env.CreatedAt, now)
	if err != nil {
		return nil, err
	}

	var prev *goal.Progress
	snapshot, err := s.store.GetGoalSnapshot(ctx, envelopeID)
	if err == nil {
		prev = &goal.Progress{
			ProgressPercentage: snapshot.ProgressPercentage,
			IsCompleted:        snapshot.Completed,
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	notifications := s.evaluator.Evaluate(env.ID, env.Name, prev, curr, now)

	for _, n := range notifications {
		if err := s.publishNotification(ctx, n); err != nil {
			slog.ErrorContext(ctx, "Failed to publish notification",
				"envelope_id", env.ID, "type", string(n.Type), "error", err)
			// Keep going, the snapshot must still advance
		}
	}

	if err := s.store.SaveGoalSnapshot(ctx, storage.GoalSnapshot{
		EnvelopeID:         env.ID,
		ProgressPercentage: curr.ProgressPercentage,
		Completed:          curr.IsCompleted,
		UpdatedAt:          now,
	}); err != nil {
		return notifications, fmt.Errorf("save snapshot: %w", err)
	}

	// The forecast is stale once progress moved
	if s.cache != nil {
		_ = s.cache.Delete(forecastCacheKey(env.ID))
	}

	slog.InfoContext(ctx, "Evaluated goal",
		"envelope_id", env.ID,
		"progress_pct", curr.ProgressPercentage,
		"notifications", len(notifications))

	return notifications, nil
}

// EvaluateAllGoals evaluates every savings envelope and returns the total
// number of notifications published.
func (s *GoalService) EvaluateAllGoals(ctx context.Context, now time.Time) (int, error) {
	envs, err := s.store.ListEnvelopesByType(ctx, core.EnvelopeSavings)
	if err != nil {
		return 0, fmt.Errorf("list savings envelopes: %w", err)
	}

	total := 0
	for _, env := range envs {
		if env.TargetAmount.Cents <= 0 {
			continue
		}
		notifications, err := s.EvaluateGoal(ctx, env.ID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to evaluate goal",
				"envelope_id", env.ID, "error", err)
			continue
		}
		total += len(notifications)
	}

	return total, nil
}

func (s *GoalService) savingsGoal(ctx context.Context, envelopeID int64) (core.Envelope, error) {
	env, err := s.store.GetEnvelope(ctx, envelopeID)
	if err != nil {
		return core.Envelope{}, err
	}
	if env.Type != core.EnvelopeSavings || env.TargetAmount.Cents <= 0 {
		return core.Envelope{}, fmt.Errorf("envelope %d: %w", envelopeID, ErrNotSavingsGoal)
	}
	return env, nil
}

func (s *GoalService) publishNotification(ctx context.Context, n notify.Notification) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Notification publisher not available, skipping")
		return nil
	}

	return s.publisher.PublishNotification(ctx, &amqp.NotificationMessage{
		ID:                  n.ID,
		GoalID:              n.GoalID,
		Type:                string(n.Type),
		Title:               n.Title,
		Message:             n.Message,
		Severity:            string(n.Severity),
		MilestonePercentage: n.MilestonePercentage,
		Timestamp:           n.Timestamp,
	})
}

func forecastCacheKey(envelopeID int64) string {
	return fmt.Sprintf("forecast:%d", envelopeID)
}

// velocityPoints folds transactions into cumulative contribution totals,
// one point per transaction date.
func velocityPoints(txs []core.Transaction) []goal.VelocityPoint {
	var points []goal.VelocityPoint
	var running float64

	for _, tx := range txs {
		if !tx.IsContribution() {
			continue
		}
		running += tx.Amount.Amount()

		if n := len(points); n > 0 && points[n-1].Date.Equal(tx.Date.Time) {
			points[n-1].Amount = running
			continue
		}
		points = append(points, goal.VelocityPoint{Date: tx.Date.Time, Amount: running})
	}

	return points
}
