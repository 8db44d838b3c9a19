package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/order-admin/internal/models"
	"github.com/vaidashi/order-admin/internal/repository"
)

type fakeOrderReader struct {
	orders     []*models.Order
	listErr    error
	items      map[string][]models.OrderItem
	itemErrs   map[string]error
	itemDelays map[string]time.Duration

	mu        sync.Mutex
	itemCalls []string
}

func (f *fakeOrderReader) ListOrders(ctx context.Context) ([]*models.Order, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	out := make([]*models.Order, len(f.orders))
	for i, o := range f.orders {
		copied := *o
		out[i] = &copied
	}
	return out, nil
}

func (f *fakeOrderReader) ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	f.mu.Lock()
	f.itemCalls = append(f.itemCalls, orderID)
	f.mu.Unlock()

	if d := f.itemDelays[orderID]; d > 0 {
		time.Sleep(d)
	}

	if err := f.itemErrs[orderID]; err != nil {
		return nil, err
	}

	items := f.items[orderID]
	if items == nil {
		items = []models.OrderItem{}
	}
	return items, nil
}

// fakeSettingStore keeps settings in a map keyed by the unique key, the way
// the upsert statement does.
type fakeSettingStore struct {
	db *sql.DB

	mu        sync.Mutex
	rows      map[string]*models.Setting
	nextID    int64
	getErr    error
	upsertErr error
}

func newFakeSettingStore(t *testing.T) (*fakeSettingStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &fakeSettingStore{db: db, rows: map[string]*models.Setting{}}, mock
}

func (f *fakeSettingStore) GetByKey(ctx context.Context, key string) (*models.Setting, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeSettingStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return f.db.BeginTx(ctx, nil)
}

func (f *fakeSettingStore) UpsertInTx(ctx context.Context, tx *sql.Tx, setting *models.Setting) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if row, ok := f.rows[setting.Key]; ok {
		row.Value = setting.Value
		row.UpdatedAt = setting.UpdatedAt
		setting.ID = row.ID
		setting.Description = row.Description
		return nil
	}

	f.nextID++
	setting.ID = f.nextID
	copied := *setting
	f.rows[setting.Key] = &copied
	return nil
}

type fakeOutbox struct {
	messages []*models.OutboxMessage
	err      error
}

func (f *fakeOutbox) CreateInTx(ctx context.Context, tx *sql.Tx, message *models.OutboxMessage) error {
	if f.err != nil {
		return f.err
	}
	message.ID = int64(len(f.messages) + 1)
	f.messages = append(f.messages, message)
	return nil
}

var errBackend = errors.New("backend unreachable")
