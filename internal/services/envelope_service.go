package services

import (
	"context"
	"fmt"
	"log/slog"

	"envelopes/internal/amqp"
	"envelopes/internal/core"
	"envelopes/internal/storage"
)

// EnvelopeService orchestrates envelope and transaction operations across
// SQLite and AMQP
type EnvelopeService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewEnvelopeService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *EnvelopeService {
	return &EnvelopeService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateEnvelope validates and persists a new envelope
func (s *EnvelopeService) CreateEnvelope(ctx context.Context, e core.Envelope) (core.Envelope, error) {
	if err := e.Validate(); err != nil {
		return core.Envelope{}, fmt.Errorf("validate envelope: %w", err)
	}

	created, err := s.storage.CreateEnvelope(ctx, e)
	if err != nil {
		return core.Envelope{}, fmt.Errorf("create envelope: %w", err)
	}

	return created, nil
}

// GetEnvelope fetches a single envelope by ID
func (s *EnvelopeService) GetEnvelope(ctx context.Context, id int64) (core.Envelope, error) {
	return s.storage.GetEnvelope(ctx, id)
}

// ListEnvelopes returns all envelopes
func (s *EnvelopeService) ListEnvelopes(ctx context.Context) ([]core.Envelope, error) {
	return s.storage.ListEnvelopes(ctx)
}

// ListEnvelopesByType returns envelopes of the given type
func (s *EnvelopeService) ListEnvelopesByType(ctx context.Context, t core.EnvelopeType) ([]core.Envelope, error) {
	return s.storage.ListEnvelopesByType(ctx, t)
}

// RecordTransaction saves a transaction locally and publishes a sync message
func (s *EnvelopeService) RecordTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	// Make sure the envelope exists before touching its balance
	if _, err := s.storage.GetEnvelope(ctx, tx.EnvelopeID); err != nil {
		return core.Transaction{}, fmt.Errorf("resolve envelope: %w", err)
	}

	// Save to SQLite first (fast, reliable)
	saved, err := s.storage.AppendTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	// Publish async sync message (non-blocking, version 1 for new transaction)
	if err := s.publishSyncMessage(ctx, saved.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", saved.ID, "error", err)
		// Don't fail the request - transaction is saved locally
	}

	return saved, nil
}

// ListTransactions returns all transactions of an envelope
func (s *EnvelopeService) ListTransactions(ctx context.Context, envelopeID int64) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, envelopeID)
}

func (s *EnvelopeService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}

	return s.amqpClient.PublishTransactionSync(ctx, id, version)
}

// Close closes both storage and AMQP connections
func (s *EnvelopeService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close envelope service: %v", errs)
	}

	return nil
}
