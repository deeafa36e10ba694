//go:build integration

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRabbitMQ(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": "openmusic",
				"RABBITMQ_DEFAULT_PASS": "openmusic",
			},
			WaitingFor: wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.PortEndpoint(ctx, "5672/tcp", "")
	require.NoError(t, err)
	return "amqp://openmusic:openmusic@" + endpoint + "/"
}

func TestPublishConsumeRoundTrip(t *testing.T) {
	url := startRabbitMQ(t)

	client, err := Dial(url)
	require.NoError(t, err)
	defer client.Close()

	const queue = "export:playlists"
	require.NoError(t, client.DeclareQueue(queue))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	body := []byte(`{"playlistId":"playlist-1","targetEmail":"a@b.com"}`)
	require.NoError(t, client.Publish(ctx, queue, body, "job-1"))

	deliveries, err := client.Consume(queue, "test", 1)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		assert.Equal(t, body, d.Body)
		assert.Equal(t, "job-1", d.MessageId)
		assert.Equal(t, uint8(2), d.DeliveryMode)
		require.NoError(t, d.Ack(false))
	case <-ctx.Done():
		t.Fatal("no delivery received")
	}
}

func TestUnackedDeliveryIsRedelivered(t *testing.T) {
	url := startRabbitMQ(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	const queue = "export:redelivery"

	producer, err := Dial(url)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.Publish(ctx, queue, []byte(`{}`), "job-2"))

	first, err := Dial(url)
	require.NoError(t, err)
	deliveries, err := first.Consume(queue, "crashy", 1)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		assert.False(t, d.Redelivered)
	case <-ctx.Done():
		t.Fatal("no first delivery")
	}
	// Drop the connection without acking.
	require.NoError(t, first.Close())

	second, err := Dial(url)
	require.NoError(t, err)
	defer second.Close()
	deliveries, err = second.Consume(queue, "steady", 1)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		assert.True(t, d.Redelivered)
		assert.Equal(t, "job-2", d.MessageId)
		require.NoError(t, d.Ack(false))
	case <-ctx.Done():
		t.Fatal("message was not redelivered")
	}
}
