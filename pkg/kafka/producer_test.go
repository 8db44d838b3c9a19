package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vaidashi/order-admin/pkg/errors"
	"github.com/vaidashi/order-admin/pkg/logger"
)

func TestSendMessage(t *testing.T) {
	mock := mocks.NewSyncProducer(t, NewConfig())
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"key":"email_api_key"}` {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewProducerWithClient(mock, logger.NewNopLogger())
	defer p.Close()

	err := p.SendMessage(context.Background(), "settings", "email_api_key", []byte(`{"key":"email_api_key"}`))
	require.NoError(t, err)
}

func TestSendMessageFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, NewConfig())
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerWithClient(mock, logger.NewNopLogger())
	defer p.Close()

	err := p.SendMessage(context.Background(), "settings", "email_api_key", []byte("{}"))
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestSendMessagePermanentFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, NewConfig())
	mock.ExpectSendMessageAndFail(sarama.ErrMessageSizeTooLarge)

	p := NewProducerWithClient(mock, logger.NewNopLogger())
	defer p.Close()

	err := p.SendMessage(context.Background(), "settings", "email_api_key", []byte("{}"))
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrMessageSizeTooLarge)
	assert.False(t, apperrors.IsRetryable(err))
}

func TestSendMessageCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, NewConfig())
	p := NewProducerWithClient(mock, logger.NewNopLogger())
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.SendMessage(ctx, "settings", "k", nil), context.Canceled)
}
