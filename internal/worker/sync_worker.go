package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"envelopes/internal/amqp"
	"envelopes/internal/storage"
)

// SyncWorker pushes recorded transactions to the sync queue. The HTTP path
// publishes on write; this worker sweeps transactions whose publish was lost
// (broker down, process crash between commit and publish).
type SyncWorker struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	batchSize  int
	interval   time.Duration
}

func NewSyncWorker(storage *storage.SQLiteRepository, amqpClient *amqp.Client, batchSize int, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		storage:    storage,
		amqpClient: amqpClient,
		batchSize:  batchSize,
		interval:   interval,
	}
}

// ProcessPendingTransactions publishes one batch of unsynced transactions and
// marks each one synced after a successful publish.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.storage.GetUnsyncedTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get unsynced transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, tx := range pending {
		if err := w.amqpClient.PublishTransactionSync(ctx, tx.ID, 1); err != nil {
			slog.ErrorContext(ctx, "Failed to publish pending transaction",
				"id", tx.ID, "error", err)
			continue
		}

		if err := w.storage.MarkTransactionSynced(ctx, tx.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction synced",
				"id", tx.ID, "error", err)
		}
	}

	return nil
}

// StartupSyncCheck sweeps a larger batch once at worker startup. This is
// useful to recover from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetUnsyncedTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get unsynced transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, tx := range pending {
		if err := w.amqpClient.PublishTransactionSync(ctx, tx.ID, 1); err != nil {
			slog.ErrorContext(ctx, "Failed to publish pending transaction",
				"id", tx.ID, "error", err)
			errorCount++
			continue
		}
		if err := w.storage.MarkTransactionSynced(ctx, tx.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction synced",
				"id", tx.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync check completed",
		"synced", successCount, "errors", errorCount)

	return nil
}

// Run sweeps pending transactions on the configured interval until the
// context is cancelled.
func (w *SyncWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Sync worker started",
		"batch_size", w.batchSize, "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Sync worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPendingTransactions(ctx); err != nil {
				slog.ErrorContext(ctx, "Sync sweep failed", "error", err)
			}
		}
	}
}
