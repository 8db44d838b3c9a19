package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/order-admin/internal/models"
	apperrors "github.com/vaidashi/order-admin/pkg/errors"
	"github.com/vaidashi/order-admin/pkg/logger"
	"github.com/vaidashi/order-admin/pkg/retry"
)

type fakeStore struct {
	mu       sync.Mutex
	messages []*models.OutboxMessage
	status   map[int64]models.OutboxStatus
	lastErr  map[int64]string
	fetchErr error
}

func newFakeStore(messages ...*models.OutboxMessage) *fakeStore {
	s := &fakeStore{
		messages: messages,
		status:   map[int64]models.OutboxStatus{},
		lastErr:  map[int64]string{},
	}
	for _, m := range messages {
		s.status[m.ID] = models.OutboxStatusPending
	}
	return s
}

func (s *fakeStore) GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	var out []*models.OutboxMessage
	for _, m := range s.messages {
		if s.status[m.ID] == models.OutboxStatusPending && len(out) < limit {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) set(id int64, status models.OutboxStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = status
	if errMsg != "" {
		s.lastErr[id] = errMsg
	}
}

func (s *fakeStore) MarkAsProcessing(ctx context.Context, id int64) error {
	s.mu.Lock()
	for _, m := range s.messages {
		if m.ID == id {
			m.ProcessingAttempts++
		}
	}
	s.mu.Unlock()
	s.set(id, models.OutboxStatusProcessing, "")
	return nil
}

func (s *fakeStore) MarkAsPending(ctx context.Context, id int64, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.set(id, models.OutboxStatusPending, errorMessage)
	return nil
}

func (s *fakeStore) MarkAsCompleted(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.set(id, models.OutboxStatusCompleted, "")
	return nil
}

func (s *fakeStore) MarkAsFailed(ctx context.Context, id int64, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.set(id, models.OutboxStatusFailed, errorMessage)
	return nil
}

func (s *fakeStore) statusOf(id int64) models.OutboxStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[id]
}

func (s *fakeStore) errorOf(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr[id]
}

type handlerFunc func(ctx context.Context, message *models.OutboxMessage) error

func (f handlerFunc) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	return f(ctx, message)
}

// waitForContext blocks like a publish that outlives its context
func waitForContext(started chan<- struct{}) handlerFunc {
	return func(ctx context.Context, message *models.OutboxMessage) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}
}

type recordingHandler struct {
	mu    sync.Mutex
	seen  []int64
	failN int
}

func (h *recordingHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, message.ID)
	if h.failN > 0 {
		h.failN--
		return errors.New("broker down")
	}
	return nil
}

func settingMessage(t *testing.T, id int64) *models.OutboxMessage {
	t.Helper()
	msg, err := models.NewSettingUpdatedEvent(models.NewSetting(models.EmailAPIKey, "v"))
	require.NoError(t, err)
	msg.ID = id
	return msg
}

func newTestProcessor(store Store, maxRetries int) *Processor {
	return NewProcessor(store, ProcessorConfig{
		PollingInterval: 10 * time.Millisecond,
		BatchSize:       10,
		MaxRetries:      maxRetries,
	}, logger.NewNopLogger())
}

func TestProcessBatchCompletesMessages(t *testing.T) {
	store := newFakeStore(settingMessage(t, 1), settingMessage(t, 2))
	handler := &recordingHandler{}

	p := newTestProcessor(store, 3)
	p.RegisterHandler(models.EventTypeSettingSaved, handler)

	require.NoError(t, p.ProcessBatch(context.Background()))

	assert.Equal(t, []int64{1, 2}, handler.seen)
	assert.Equal(t, models.OutboxStatusCompleted, store.statusOf(1))
	assert.Equal(t, models.OutboxStatusCompleted, store.statusOf(2))
}

func TestProcessBatchRequeuesThenFails(t *testing.T) {
	store := newFakeStore(settingMessage(t, 1))
	handler := &recordingHandler{failN: 10}

	p := newTestProcessor(store, 2)
	p.RegisterHandler(models.EventTypeSettingSaved, handler)
	ctx := context.Background()

	require.NoError(t, p.ProcessBatch(ctx))
	assert.Equal(t, models.OutboxStatusPending, store.statusOf(1))
	assert.Equal(t, "broker down", store.errorOf(1))

	require.NoError(t, p.ProcessBatch(ctx))
	assert.Equal(t, models.OutboxStatusFailed, store.statusOf(1))
	assert.Contains(t, store.errorOf(1), "max retries reached")

	require.NoError(t, p.ProcessBatch(ctx))
	assert.Len(t, handler.seen, 2)
}

func TestProcessBatchRequeuesAfterBatchDeadline(t *testing.T) {
	store := newFakeStore(settingMessage(t, 1), settingMessage(t, 2))

	p := newTestProcessor(store, 3)
	p.RegisterHandler(models.EventTypeSettingSaved, waitForContext(make(chan struct{}, 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, p.ProcessBatch(ctx))

	assert.Equal(t, models.OutboxStatusPending, store.statusOf(1))
	assert.Contains(t, store.errorOf(1), context.DeadlineExceeded.Error())
	assert.Equal(t, models.OutboxStatusPending, store.statusOf(2), "untouched after the deadline")
}

func TestProcessBatchFailsAfterDeadlineOnLastAttempt(t *testing.T) {
	store := newFakeStore(settingMessage(t, 1))

	p := newTestProcessor(store, 1)
	p.RegisterHandler(models.EventTypeSettingSaved, waitForContext(make(chan struct{}, 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, p.ProcessBatch(ctx))

	assert.Equal(t, models.OutboxStatusFailed, store.statusOf(1))
	assert.Contains(t, store.errorOf(1), "max retries reached")
}

func TestStopDuringPublishRequeues(t *testing.T) {
	store := newFakeStore(settingMessage(t, 1))
	started := make(chan struct{}, 1)

	p := NewProcessor(store, ProcessorConfig{
		PollingInterval: 10 * time.Millisecond,
		BatchSize:       10,
		MaxRetries:      100,
	}, logger.NewNopLogger())
	p.RegisterHandler(models.EventTypeSettingSaved, waitForContext(started))

	p.Start()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}

	p.Stop()

	assert.Equal(t, models.OutboxStatusPending, store.statusOf(1))
}

func TestProcessBatchUnknownEventType(t *testing.T) {
	msg := settingMessage(t, 1)
	msg.EventType = "order_created"
	store := newFakeStore(msg)

	p := newTestProcessor(store, 3)
	require.NoError(t, p.ProcessBatch(context.Background()))

	assert.Equal(t, models.OutboxStatusFailed, store.statusOf(1))
	assert.Contains(t, store.errorOf(1), "no handler registered")
}

func TestProcessBatchFetchError(t *testing.T) {
	store := newFakeStore()
	store.fetchErr = errors.New("db down")

	err := newTestProcessor(store, 3).ProcessBatch(context.Background())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	store := newFakeStore(settingMessage(t, 1))
	p := newTestProcessor(store, 3)
	p.RegisterHandler(models.EventTypeSettingSaved, NewLoggingHandler(logger.NewNopLogger()))

	p.Start()
	p.Start()

	assert.Eventually(t, func() bool {
		return store.statusOf(1) == models.OutboxStatusCompleted
	}, time.Second, 5*time.Millisecond)

	p.Stop()
	p.Stop()
}

type fakePublisher struct {
	permanent bool
	calls     int
	fail  int
	topic string
	key   string
	value []byte
}

func (f *fakePublisher) SendMessage(ctx context.Context, topic string, key string, value []byte) error {
	f.calls++
	if f.permanent {
		return errors.New("message too large")
	}
	if f.calls <= f.fail {
		return apperrors.NewTemporaryError("leader not available")
	}
	f.topic, f.key, f.value = topic, key, value
	return nil
}

func TestKafkaHandlerRetriesPublish(t *testing.T) {
	pub := &fakePublisher{fail: 1}
	h := NewKafkaHandler(pub, "settings", &retry.RetryConfig{
		MaxAttempts:     3,
		BackoffStrategy: &retry.ConstantBackoff{Interval: time.Millisecond},
		Logger:          logger.NewNopLogger(),
	}, logger.NewNopLogger())

	msg := settingMessage(t, 5)
	require.NoError(t, h.HandleMessage(context.Background(), msg))

	assert.Equal(t, 2, pub.calls)
	assert.Equal(t, "settings", pub.topic)
	assert.Equal(t, models.EmailAPIKey, pub.key)
	assert.Equal(t, msg.Payload, pub.value)
}

func TestKafkaHandlerGivesUp(t *testing.T) {
	pub := &fakePublisher{fail: 5}
	h := NewKafkaHandler(pub, "settings", &retry.RetryConfig{
		MaxAttempts:     2,
		BackoffStrategy: &retry.ConstantBackoff{Interval: time.Millisecond},
		Logger:          logger.NewNopLogger(),
	}, logger.NewNopLogger())

	assert.Error(t, h.HandleMessage(context.Background(), settingMessage(t, 5)))
	assert.Equal(t, 2, pub.calls)
}

func TestKafkaHandlerDoesNotRetryPermanentErrors(t *testing.T) {
	pub := &fakePublisher{permanent: true}
	h := NewKafkaHandler(pub, "settings", &retry.RetryConfig{
		MaxAttempts:     3,
		BackoffStrategy: &retry.ConstantBackoff{Interval: time.Millisecond},
		Logger:          logger.NewNopLogger(),
	}, logger.NewNopLogger())

	assert.Error(t, h.HandleMessage(context.Background(), settingMessage(t, 5)))
	assert.Equal(t, 1, pub.calls)
}

func TestLoggingHandlerRejectsBadPayload(t *testing.T) {
	h := NewLoggingHandler(logger.NewNopLogger())

	assert.NoError(t, h.HandleMessage(context.Background(), settingMessage(t, 1)))
	assert.Error(t, h.HandleMessage(context.Background(), &models.OutboxMessage{Payload: []byte("{")}))
}
