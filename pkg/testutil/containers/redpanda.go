//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// RedpandaContainer wraps a Kafka-compatible Redpanda instance for notifier tests.
type RedpandaContainer struct {
	Container testcontainers.Container
	Broker    string
}

// NewRedpandaContainer starts a Redpanda container and returns its broker address.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "redpandadata/redpanda:v24.1.2")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		t.Fatalf("failed to get redpanda broker: %v", err)
	}

	return &RedpandaContainer{Container: container, Broker: broker}
}

// CreateTopic creates a topic with a single partition.
func (r *RedpandaContainer) CreateTopic(t *testing.T, topic string) {
	t.Helper()

	client, err := kgo.NewClient(kgo.SeedBrokers(r.Broker))
	if err != nil {
		t.Fatalf("failed to build kafka client: %v", err)
	}
	defer client.Close()

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(context.Background(), 1, 1, nil, topic); err != nil {
		t.Fatalf("failed to create topic %s: %v", topic, err)
	}
}
