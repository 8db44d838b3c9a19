package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vaidashi/order-admin/internal/database"
	"github.com/vaidashi/order-admin/internal/models"
	"github.com/vaidashi/order-admin/pkg/logger"
)

// SettingRepository handles database operations for settings
type SettingRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewSettingRepository creates a new SettingRepository
func NewSettingRepository(db *database.Database, logger logger.Logger) *SettingRepository {
	return &SettingRepository{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts a transaction for a setting write
func (r *SettingRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx)
}

// GetByKey returns the setting stored under key, or ErrNotFound
func (r *SettingRepository) GetByKey(ctx context.Context, key string) (*models.Setting, error) {
	query := `
		SELECT id, key, value, COALESCE(description, '') AS description, updated_at
		FROM settings
		WHERE key = $1
	`

	var setting models.Setting
	err := r.db.DB.GetContext(ctx, &setting, query, key)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get setting", "error", err, "key", key)
		return nil, wrapError(err)
	}

	return &setting, nil
}

const upsertSettingQuery = `
	INSERT INTO settings (key, value, description, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	RETURNING id, COALESCE(description, '')
`

// UpsertInTx inserts the setting or, when the key exists, replaces its value
// and updated_at in one statement. The description is only written on insert.
// setting.ID and setting.Description are filled from the stored row.
func (r *SettingRepository) UpsertInTx(ctx context.Context, tx *sql.Tx, setting *models.Setting) error {
	err := tx.QueryRowContext(
		ctx,
		upsertSettingQuery,
		setting.Key,
		setting.Value,
		setting.Description,
		setting.UpdatedAt,
	).Scan(&setting.ID, &setting.Description)

	if err != nil {
		r.logger.Error("Failed to upsert setting", "error", err, "key", setting.Key)
		return wrapError(err)
	}

	return nil
}
