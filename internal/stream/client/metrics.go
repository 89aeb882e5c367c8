package client

import (
	"context"
	"time"

	"redstream/internal/stream"
	"redstream/internal/stream/metrics"
)

// MetricsClient wraps a stream.Client with metrics collection
type MetricsClient struct {
	client   stream.Client
	registry *metrics.Registry
	stream   string
	group    string
}

// NewMetricsClient creates a new instrumented client
func NewMetricsClient(client stream.Client, registry *metrics.Registry, streamName, group string) stream.Client {
	return &MetricsClient{
		client:   client,
		registry: registry,
		stream:   streamName,
		group:    group,
	}
}

// ReceiveMessages implements stream.Client.ReceiveMessages with metrics collection
func (c *MetricsClient) ReceiveMessages(ctx context.Context, maxCount int) ([]stream.Message, error) {
	start := time.Now()

	msgs, err := c.client.ReceiveMessages(ctx, maxCount)
	duration := time.Since(start)

	c.registry.RecordPoll(c.stream, c.group, len(msgs), duration, err)

	return msgs, err
}

// Ack implements stream.Client.Ack with metrics collection
func (c *MetricsClient) Ack(ctx context.Context, msg stream.Message) error {
	err := c.client.Ack(ctx, msg)

	c.registry.RecordAck(msg.Ack.Stream, msg.Ack.Group, err)

	return err
}
