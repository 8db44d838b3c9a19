package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vaidashi/order-admin/internal/models"
	"github.com/vaidashi/order-admin/internal/repository"
	"github.com/vaidashi/order-admin/pkg/logger"
)

var (
	// ErrSettingsSaveFailed is shown to the admin, who may submit again
	ErrSettingsSaveFailed = errors.New("failed to save setting")
	ErrInvalidSettingKey  = errors.New("invalid setting key")
)

const maxSettingKeyLength = 100

// SettingStore is the persistence the settings manager needs
type SettingStore interface {
	GetByKey(ctx context.Context, key string) (*models.Setting, error)
	BeginTx(ctx context.Context) (*sql.Tx, error)
	UpsertInTx(ctx context.Context, tx *sql.Tx, setting *models.Setting) error
}

// OutboxWriter records events in the same transaction as the data change
type OutboxWriter interface {
	CreateInTx(ctx context.Context, tx *sql.Tx, message *models.OutboxMessage) error
}

// SettingService reads and writes single key/value settings
type SettingService struct {
	settings SettingStore
	outbox   OutboxWriter
	logger   logger.Logger
}

// NewSettingService creates a new SettingService
func NewSettingService(settings SettingStore, outbox OutboxWriter, logger logger.Logger) *SettingService {
	return &SettingService{
		settings: settings,
		outbox:   outbox,
		logger:   logger,
	}
}

// ValidateKey checks the key is usable as a settings key
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || key != strings.TrimSpace(key) {
		return fmt.Errorf("%w: key must be non-empty without surrounding spaces", ErrInvalidSettingKey)
	}

	if len(key) > maxSettingKeyLength {
		return fmt.Errorf("%w: key longer than %d characters", ErrInvalidSettingKey, maxSettingKeyLength)
	}

	return nil
}

// Load returns the value stored under key. A missing record is reported as
// found=false; so is a failed lookup, which is only logged.
func (s *SettingService) Load(ctx context.Context, key string) (string, bool) {
	setting, err := s.settings.GetByKey(ctx, key)

	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Failed to load setting, treating as unset", "error", err, "key", key)
		}
		return "", false
	}

	return setting.Value, true
}

// Save stores value under key, creating the record if needed. The write is a
// single upsert, committed together with a setting_updated outbox event.
func (s *SettingService) Save(ctx context.Context, key, value string) (err error) {
	if err := ValidateKey(key); err != nil {
		return err
	}

	setting := models.NewSetting(key, value)

	event, err := models.NewSettingUpdatedEvent(setting)

	if err != nil {
		s.logger.Error("Failed to build setting event", "error", err, "key", key)
		return fmt.Errorf("%w: %v", ErrSettingsSaveFailed, err)
	}

	tx, err := s.settings.BeginTx(ctx)

	if err != nil {
		s.logger.Error("Failed to begin setting transaction", "error", err, "key", key)
		return fmt.Errorf("%w: %v", ErrSettingsSaveFailed, err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	if err = s.settings.UpsertInTx(ctx, tx, setting); err != nil {
		return fmt.Errorf("%w: %w", ErrSettingsSaveFailed, err)
	}

	if err = s.outbox.CreateInTx(ctx, tx, event); err != nil {
		return fmt.Errorf("%w: %w", ErrSettingsSaveFailed, err)
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("%w: %v", ErrSettingsSaveFailed, err)
	}

	s.logger.Info("Setting saved", "key", key, "settingID", setting.ID, "messageID", event.ID)
	return nil
}
