package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"envelopes/internal/amqp"
	"envelopes/internal/services"
	"envelopes/internal/storage"
)

// SyncConsumer reacts to transaction sync messages by re-evaluating the goal
// of the envelope the transaction belongs to. A contribution to a savings
// goal thus produces its milestone notification within seconds, instead of
// waiting for the next scheduled evaluation pass.
type SyncConsumer struct {
	storage *storage.SQLiteRepository
	amqp    *amqp.Client
	goals   *services.GoalService
}

func NewSyncConsumer(store *storage.SQLiteRepository, client *amqp.Client, goals *services.GoalService) *SyncConsumer {
	return &SyncConsumer{
		storage: store,
		amqp:    client,
		goals:   goals,
	}
}

// Run consumes transaction sync messages until the context is cancelled.
// Handler errors requeue the message, so only transient failures may return
// a non-nil error; transactions that no longer exist or that do not belong
// to a savings goal are acknowledged and dropped.
func (c *SyncConsumer) Run(ctx context.Context) error {
	return c.amqp.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
		return c.handle(ctx, msg)
	})
}

func (c *SyncConsumer) handle(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	tx, err := c.storage.GetTransaction(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Sync message for unknown transaction, dropping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", msg.ID, err)
	}

	if !tx.IsContribution() {
		return nil
	}

	notifications, err := c.goals.EvaluateGoal(ctx, tx.EnvelopeID, time.Now())
	if errors.Is(err, services.ErrNotSavingsGoal) || errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("evaluate goal for envelope %d: %w", tx.EnvelopeID, err)
	}

	if len(notifications) > 0 {
		slog.InfoContext(ctx, "Reactive goal evaluation published notifications",
			"envelope_id", tx.EnvelopeID,
			"transaction_id", tx.ID,
			"notifications", len(notifications))
	}
	return nil
}
