package storage

import (
	"context"
	"database/sql"
	"time"
)

// Queries wraps the hand-written SQL for the envelope and transaction
// tables. Dates are stored as ISO strings (YYYY-MM-DD); money as cents.
type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const dateLayout = "2006-01-02"

type EnvelopeRow struct {
	ID                  int64
	Name                string
	Type                string
	BalanceCents        int64
	TargetCents         int64
	TargetDate          string
	APR                 float64
	MinimumPaymentCents int64
	CreatedAt           time.Time
}

type TransactionRow struct {
	ID          int64
	EnvelopeID  int64
	Type        string
	AmountCents int64
	OccurredOn  string
	Version     int64
	SyncedAt    sql.NullTime
	CreatedAt   time.Time
}

type SnapshotRow struct {
	EnvelopeID  int64
	ProgressPct float64
	Completed   bool
	UpdatedAt   time.Time
}

type CreateEnvelopeParams struct {
	Name                string
	Type                string
	BalanceCents        int64
	TargetCents         int64
	TargetDate          string
	APR                 float64
	MinimumPaymentCents int64
}

func (q *Queries) CreateEnvelope(ctx context.Context, p CreateEnvelopeParams) (EnvelopeRow, error) {
	const query = `
		INSERT INTO envelopes (name, type, balance_cents, target_cents, target_date, apr, minimum_payment_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id, name, type, balance_cents, target_cents, target_date, apr, minimum_payment_cents, created_at`
	var row EnvelopeRow
	err := q.db.QueryRowContext(ctx, query,
		p.Name, p.Type, p.BalanceCents, p.TargetCents, p.TargetDate, p.APR, p.MinimumPaymentCents,
	).Scan(&row.ID, &row.Name, &row.Type, &row.BalanceCents, &row.TargetCents, &row.TargetDate, &row.APR, &row.MinimumPaymentCents, &row.CreatedAt)
	return row, err
}

func (q *Queries) GetEnvelope(ctx context.Context, id int64) (EnvelopeRow, error) {
	const query = `
		SELECT id, name, type, balance_cents, target_cents, target_date, apr, minimum_payment_cents, created_at
		FROM envelopes WHERE id = ?`
	var row EnvelopeRow
	err := q.db.QueryRowContext(ctx, query, id).Scan(
		&row.ID, &row.Name, &row.Type, &row.BalanceCents, &row.TargetCents, &row.TargetDate, &row.APR, &row.MinimumPaymentCents, &row.CreatedAt)
	return row, err
}

func (q *Queries) ListEnvelopes(ctx context.Context) ([]EnvelopeRow, error) {
	const query = `
		SELECT id, name, type, balance_cents, target_cents, target_date, apr, minimum_payment_cents, created_at
		FROM envelopes ORDER BY name`
	return q.scanEnvelopes(ctx, query)
}

func (q *Queries) ListEnvelopesByType(ctx context.Context, envType string) ([]EnvelopeRow, error) {
	const query = `
		SELECT id, name, type, balance_cents, target_cents, target_date, apr, minimum_payment_cents, created_at
		FROM envelopes WHERE type = ? ORDER BY name`
	return q.scanEnvelopes(ctx, query, envType)
}

func (q *Queries) scanEnvelopes(ctx context.Context, query string, args ...any) ([]EnvelopeRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EnvelopeRow
	for rows.Next() {
		var row EnvelopeRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Type, &row.BalanceCents, &row.TargetCents, &row.TargetDate, &row.APR, &row.MinimumPaymentCents, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateEnvelopeBalance(ctx context.Context, id, deltaCents int64) error {
	const query = `UPDATE envelopes SET balance_cents = balance_cents + ? WHERE id = ?`
	_, err := q.db.ExecContext(ctx, query, deltaCents, id)
	return err
}

type CreateTransactionParams struct {
	EnvelopeID  int64
	Type        string
	AmountCents int64
	OccurredOn  string
}

func (q *Queries) CreateTransaction(ctx context.Context, p CreateTransactionParams) (TransactionRow, error) {
	const query = `
		INSERT INTO transactions (envelope_id, type, amount_cents, occurred_on)
		VALUES (?, ?, ?, ?)
		RETURNING id, envelope_id, type, amount_cents, occurred_on, version, synced_at, created_at`
	var row TransactionRow
	err := q.db.QueryRowContext(ctx, query, p.EnvelopeID, p.Type, p.AmountCents, p.OccurredOn).Scan(
		&row.ID, &row.EnvelopeID, &row.Type, &row.AmountCents, &row.OccurredOn, &row.Version, &row.SyncedAt, &row.CreatedAt)
	return row, err
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	const query = `
		SELECT id, envelope_id, type, amount_cents, occurred_on, version, synced_at, created_at
		FROM transactions WHERE id = ?`
	var row TransactionRow
	err := q.db.QueryRowContext(ctx, query, id).Scan(
		&row.ID, &row.EnvelopeID, &row.Type, &row.AmountCents, &row.OccurredOn, &row.Version, &row.SyncedAt, &row.CreatedAt)
	return row, err
}

func (q *Queries) ListTransactionsByEnvelope(ctx context.Context, envelopeID int64) ([]TransactionRow, error) {
	const query = `
		SELECT id, envelope_id, type, amount_cents, occurred_on, version, synced_at, created_at
		FROM transactions WHERE envelope_id = ? ORDER BY occurred_on, id`
	rows, err := q.db.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		var row TransactionRow
		if err := rows.Scan(&row.ID, &row.EnvelopeID, &row.Type, &row.AmountCents, &row.OccurredOn, &row.Version, &row.SyncedAt, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (q *Queries) GetUnsyncedTransactions(ctx context.Context, limit int64) ([]TransactionRow, error) {
	const query = `
		SELECT id, envelope_id, type, amount_cents, occurred_on, version, synced_at, created_at
		FROM transactions WHERE synced_at IS NULL ORDER BY id LIMIT ?`
	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		var row TransactionRow
		if err := rows.Scan(&row.ID, &row.EnvelopeID, &row.Type, &row.AmountCents, &row.OccurredOn, &row.Version, &row.SyncedAt, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (q *Queries) MarkTransactionSynced(ctx context.Context, id int64) error {
	const query = `UPDATE transactions SET synced_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}

func (q *Queries) GetSnapshot(ctx context.Context, envelopeID int64) (SnapshotRow, error) {
	const query = `
		SELECT envelope_id, progress_pct, completed, updated_at
		FROM goal_snapshots WHERE envelope_id = ?`
	var row SnapshotRow
	err := q.db.QueryRowContext(ctx, query, envelopeID).Scan(&row.EnvelopeID, &row.ProgressPct, &row.Completed, &row.UpdatedAt)
	return row, err
}

func (q *Queries) UpsertSnapshot(ctx context.Context, envelopeID int64, progressPct float64, completed bool) error {
	const query = `
		INSERT INTO goal_snapshots (envelope_id, progress_pct, completed, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(envelope_id) DO UPDATE SET
			progress_pct = excluded.progress_pct,
			completed = excluded.completed,
			updated_at = CURRENT_TIMESTAMP`
	_, err := q.db.ExecContext(ctx, query, envelopeID, progressPct, completed)
	return err
}
