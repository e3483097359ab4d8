//go:build integration

package publisher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"wayfare/internal/audit/publisher"
	"wayfare/pkg/testutil/containers"
)

func TestKafkaPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	redpanda := containers.NewRedpandaContainer(t)

	const topic = "wayfare.audit.test"
	pub, err := publisher.NewKafka(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	require.NoError(t, pub.Publish(ctx, "tenant-a", []byte(`{"seq":1}`)))
	require.NoError(t, pub.Publish(ctx, "tenant-a", []byte(`{"seq":2}`)))
	require.NoError(t, pub.Publish(ctx, "tenant-b", []byte(`{"seq":3}`)))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	var byKey = map[string][]string{}
	deadline := time.Now().Add(30 * time.Second)
	for total := 0; total < 3 && time.Now().Before(deadline); {
		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		fetches := consumer.PollFetches(fetchCtx)
		cancel()
		fetches.EachRecord(func(r *kgo.Record) {
			byKey[string(r.Key)] = append(byKey[string(r.Key)], string(r.Value))
			total++
		})
	}

	require.Len(t, byKey["tenant-a"], 2)
	assert.Equal(t, `{"seq":1}`, byKey["tenant-a"][0], "per-key order preserved")
	assert.Equal(t, `{"seq":2}`, byKey["tenant-a"][1])
	require.Len(t, byKey["tenant-b"], 1)
}

// Reconnecting against an existing topic must not fail topic creation.
func TestKafkaPublisherTopicExists(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	redpanda := containers.NewRedpandaContainer(t)

	const topic = "wayfare.audit.existing"
	first, err := publisher.NewKafka(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	first.Close()

	second, err := publisher.NewKafka(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	second.Close()
}
