package kafka_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/conduit/pkg/channels/kafka"
	"github.com/dukex/conduit/pkg/eventbus"
	"github.com/dukex/conduit/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaTc "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func startKafka(t *testing.T) []string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	container, err := kafkaTc.Run(ctx, "confluentinc/confluent-local:7.7.0", testcontainers.WithEnv(map[string]string{
		"KAFKA_CREATE_TOPICS": "true",
	}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	admin, err := sarama.NewClusterAdmin(brokers, sarama.NewConfig())
	require.NoError(t, err)

	defer func() { _ = admin.Close() }()

	err = admin.CreateTopic(events.Topic, &sarama.TopicDetail{NumPartitions: 1, ReplicationFactor: 1}, false)
	require.NoError(t, err)

	return brokers
}

func TestCreateChannel_RoundTrip(t *testing.T) {
	brokers := startKafka(t)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "conduit-test", brokers)
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.IntegrationTagged, 1)

	require.NoError(t, bus.Handle(events.IntegrationTaggedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.IntegrationTagged)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, bus.Publish(t.Context(), "int-1", events.IntegrationTagged{
		BaseEvent:    events.NewBaseEvent(events.IntegrationTaggedEvent, "int-1"),
		Environments: []string{"staging", "prod"},
	}))

	select {
	case got := <-received:
		assert.Equal(t, "int-1", got.IntegrationID)
		assert.Equal(t, []string{"staging", "prod"}, got.Environments)
	case <-time.After(60 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestCreateChannel_NoBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " , ")

	_, _, err := kafka.CreateChannel(watermill.NopLogger{}, "conduit-test", nil)
	require.ErrorIs(t, err, kafka.ErrNoBrokers)
}

func TestBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")

	assert.Equal(t, []string{"a:9092", "b:9092"}, kafka.Brokers())
}
