package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vaidashi/order-admin/internal/database"
	"github.com/vaidashi/order-admin/internal/models"
	"github.com/vaidashi/order-admin/pkg/logger"
)

// OutboxRepository handles database operations for outbox messages
type OutboxRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *database.Database, logger logger.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:     db,
		logger: logger,
	}
}

// CreateInTx stores a pending message in the caller's transaction
func (r *OutboxRepository) CreateInTx(ctx context.Context, tx *sql.Tx, message *models.OutboxMessage) error {
	query := `
		INSERT INTO outbox_messages (
			aggregate_type, aggregate_id, event_type, payload,
			created_at, status
		) VALUES (
			$1, $2, $3, $4, $5, $6
		) RETURNING id
	`

	var id int64

	err := tx.QueryRowContext(
		ctx,
		query,
		message.AggregateType,
		message.AggregateID,
		message.EventType,
		message.Payload,
		message.CreatedAt,
		message.Status,
	).Scan(&id)

	if err != nil {
		return fmt.Errorf("failed to create outbox message in transaction: %w", wrapError(err))
	}

	message.ID = id
	return nil
}

// GetPendingMessages returns up to limit pending messages, oldest first
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload,
			   created_at, processed_at, processing_attempts, last_error, status
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	var messages []*models.OutboxMessage

	err := r.db.DB.SelectContext(
		ctx,
		&messages,
		query,
		models.OutboxStatusPending,
		limit,
	)

	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, wrapError(err)
	}

	return messages, nil
}

// MarkAsProcessing flags a message as in flight and counts the attempt
func (r *OutboxRepository) MarkAsProcessing(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, processing_attempts = processing_attempts + 1
		WHERE id = $2
	`

	return r.exec(ctx, "processing", id, query, models.OutboxStatusProcessing, id)
}

// MarkAsPending puts a message back in the queue after a failed attempt
func (r *OutboxRepository) MarkAsPending(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, last_error = $2
		WHERE id = $3
	`

	return r.exec(ctx, "pending", id, query, models.OutboxStatusPending, errorMessage, id)
}

// MarkAsCompleted records a successful publish
func (r *OutboxRepository) MarkAsCompleted(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, processed_at = $2
		WHERE id = $3
	`

	return r.exec(ctx, "completed", id, query, models.OutboxStatusCompleted, models.GetCurrentTime(), id)
}

// MarkAsFailed parks a message that will not be retried
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, last_error = $2
		WHERE id = $3
	`

	return r.exec(ctx, "failed", id, query, models.OutboxStatusFailed, errorMessage, id)
}

func (r *OutboxRepository) exec(ctx context.Context, status string, id int64, query string, args ...interface{}) error {
	result, err := r.db.DB.ExecContext(ctx, query, args...)

	if err != nil {
		r.logger.Error("Failed to update outbox message", "error", err, "messageID", id, "status", status)
		return wrapError(err)
	}

	rows, err := result.RowsAffected()

	if err != nil {
		return wrapError(err)
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
