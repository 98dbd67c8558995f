package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/ridge/solstream/test"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaWrite(t *testing.T) {
	ctx := test.Context(t)
	var w mockWriter
	k := newKafka("events", &w)

	ev := tradeEvent()
	value, err := Encode(ev)
	require.NoError(t, err)
	w.On("WriteMessages", []kafka.Message{{
		Key:     Key(ev),
		Value:   value,
		Headers: []kafka.Header{{Key: "type", Value: []byte("PumpFunTrade")}},
	}}).Return(nil).Once()

	require.NoError(t, k.Write(ctx, ev))
	w.AssertExpectations(t)
}

func TestKafkaRetry(t *testing.T) {
	ctx := test.Context(t)
	var w mockWriter
	k := newKafka("events", &w)

	w.On("WriteMessages", mock.Anything).Return(kafka.LeaderNotAvailable).Once()
	w.On("WriteMessages", mock.Anything).Return(nil).Once()
	require.NoError(t, k.Write(ctx, blockEvent(1)))
	w.AssertExpectations(t)
}

func TestKafkaFatal(t *testing.T) {
	ctx := test.Context(t)
	var w mockWriter
	k := newKafka("events", &w)

	w.On("WriteMessages", mock.Anything).Return(kafka.TopicAuthorizationFailed).Once()
	err := k.Write(ctx, blockEvent(1))
	require.ErrorIs(t, err, kafka.TopicAuthorizationFailed)
	w.AssertExpectations(t)

	w.On("Close").Return(errors.New("closed")).Once()
	require.EqualError(t, k.Close(), "closed")
}
