package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"envelopes/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested envelope or transaction does not
// exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateEnvelope persists a new envelope and returns it with its assigned ID.
func (r *SQLiteRepository) CreateEnvelope(ctx context.Context, e core.Envelope) (core.Envelope, error) {
	targetDate := ""
	if !e.TargetDate.IsEmpty() {
		targetDate = e.TargetDate.Format(dateLayout)
	}

	row, err := r.queries.CreateEnvelope(ctx, CreateEnvelopeParams{
		Name:                e.Name,
		Type:                string(e.Type),
		BalanceCents:        e.Balance.Cents,
		TargetCents:         e.TargetAmount.Cents,
		TargetDate:          targetDate,
		APR:                 e.APR,
		MinimumPaymentCents: e.MinimumPayment.Cents,
	})
	if err != nil {
		return core.Envelope{}, fmt.Errorf("create envelope: %w", err)
	}

	slog.InfoContext(ctx, "Envelope saved",
		"id", row.ID,
		"name", row.Name,
		"type", row.Type,
		"balance_cents", row.BalanceCents)

	return envelopeFromRow(row), nil
}

// GetEnvelope fetches a single envelope by ID.
func (r *SQLiteRepository) GetEnvelope(ctx context.Context, id int64) (core.Envelope, error) {
	row, err := r.queries.GetEnvelope(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Envelope{}, fmt.Errorf("envelope %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Envelope{}, fmt.Errorf("get envelope: %w", err)
	}
	return envelopeFromRow(row), nil
}

// ListEnvelopes returns all envelopes ordered by name.
func (r *SQLiteRepository) ListEnvelopes(ctx context.Context) ([]core.Envelope, error) {
	rows, err := r.queries.ListEnvelopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	return envelopesFromRows(rows), nil
}

// ListEnvelopesByType returns envelopes of the given type ordered by name.
func (r *SQLiteRepository) ListEnvelopesByType(ctx context.Context, t core.EnvelopeType) ([]core.Envelope, error) {
	rows, err := r.queries.ListEnvelopesByType(ctx, string(t))
	if err != nil {
		return nil, fmt.Errorf("list envelopes by type: %w", err)
	}
	return envelopesFromRows(rows), nil
}

// AppendTransaction persists a transaction and adjusts the envelope balance:
// contributions and income increase it, expenses and negative transfers flow
// through the signed amount directly.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		EnvelopeID:  tx.EnvelopeID,
		Type:        string(tx.Type),
		AmountCents: tx.Amount.Cents,
		OccurredOn:  tx.Date.Format(dateLayout),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	delta := tx.Amount.Cents
	if tx.Type == core.TransactionExpense && delta > 0 {
		delta = -delta
	}
	if err := r.queries.UpdateEnvelopeBalance(ctx, tx.EnvelopeID, delta); err != nil {
		return core.Transaction{}, fmt.Errorf("update envelope balance: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", row.ID,
		"envelope_id", row.EnvelopeID,
		"type", row.Type,
		"amount_cents", row.AmountCents)

	return transactionFromRow(row), nil
}

// GetTransaction fetches a single transaction by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return transactionFromRow(row), nil
}

// ListTransactions returns all transactions of an envelope in chronological
// order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, envelopeID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByEnvelope(ctx, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = transactionFromRow(row)
	}
	return out, nil
}

// GetUnsyncedTransactions returns transactions not yet published to the sync
// queue, capped at limit. Backup path for lost AMQP messages.
func (r *SQLiteRepository) GetUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.GetUnsyncedTransactions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get unsynced transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = transactionFromRow(row)
	}
	return out, nil
}

// MarkTransactionSynced records that a transaction reached the sync queue.
func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSynced(ctx, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

// GoalSnapshot is the persisted trace of the last progress evaluation of a
// goal, kept so notification rules can edge-trigger across worker runs.
type GoalSnapshot struct {
	EnvelopeID         int64
	ProgressPercentage float64
	Completed          bool
	UpdatedAt          time.Time
}

// GetGoalSnapshot returns the last recorded snapshot for an envelope, or
// ErrNotFound when the goal has never been evaluated.
func (r *SQLiteRepository) GetGoalSnapshot(ctx context.Context, envelopeID int64) (GoalSnapshot, error) {
	row, err := r.queries.GetSnapshot(ctx, envelopeID)
	if errors.Is(err, sql.ErrNoRows) {
		return GoalSnapshot{}, fmt.Errorf("snapshot for envelope %d: %w", envelopeID, ErrNotFound)
	}
	if err != nil {
		return GoalSnapshot{}, fmt.Errorf("get goal snapshot: %w", err)
	}
	return GoalSnapshot{
		EnvelopeID:         row.EnvelopeID,
		ProgressPercentage: row.ProgressPct,
		Completed:          row.Completed,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

// SaveGoalSnapshot records the latest progress evaluation for an envelope.
func (r *SQLiteRepository) SaveGoalSnapshot(ctx context.Context, s GoalSnapshot) error {
	if err := r.queries.UpsertSnapshot(ctx, s.EnvelopeID, s.ProgressPercentage, s.Completed); err != nil {
		return fmt.Errorf("save goal snapshot: %w", err)
	}
	return nil
}

func envelopeFromRow(row EnvelopeRow) core.Envelope {
	e := core.Envelope{
		ID:             row.ID,
		Name:           row.Name,
		Type:           core.EnvelopeType(row.Type),
		Balance:        core.Money{Cents: row.BalanceCents},
		TargetAmount:   core.Money{Cents: row.TargetCents},
		APR:            row.APR,
		MinimumPayment: core.Money{Cents: row.MinimumPaymentCents},
		CreatedAt:      row.CreatedAt,
	}
	if row.TargetDate != "" {
		if t, err := time.Parse(dateLayout, row.TargetDate); err == nil {
			e.TargetDate = core.Date{Time: t}
		}
	}
	return e
}

func envelopesFromRows(rows []EnvelopeRow) []core.Envelope {
	out := make([]core.Envelope, len(rows))
	for i, row := range rows {
		out[i] = envelopeFromRow(row)
	}
	return out
}

func transactionFromRow(row TransactionRow) core.Transaction {
	tx := core.Transaction{
		ID:         row.ID,
		EnvelopeID: row.EnvelopeID,
		Type:       core.TransactionType(row.Type),
		Amount:     core.Money{Cents: row.AmountCents},
		CreatedAt:  row.CreatedAt,
	}
	if t, err := time.Parse(dateLayout, row.OccurredOn); err == nil {
		tx.Date = core.Date{Time: t}
	}
	return tx
}
