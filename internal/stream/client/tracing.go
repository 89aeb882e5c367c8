package client

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"redstream/internal/stream"
	"redstream/internal/stream/tracing"
)

// TracedClient wraps a stream.Client with distributed tracing
// Layer order: TracedClient -> MetricsClient -> Client (real thing)
type TracedClient struct {
	client stream.Client
	tracer *tracing.Tracer
	stream string
	group  string
}

// NewTracedClient creates a new traced client that wraps a metrics client
func NewTracedClient(client stream.Client, tracer *tracing.Tracer, streamName, group string) stream.Client {
	return &TracedClient{
		client: client,
		tracer: tracer,
		stream: streamName,
		group:  group,
	}
}

// ReceiveMessages implements stream.Client.ReceiveMessages with distributed tracing
func (c *TracedClient) ReceiveMessages(ctx context.Context, maxCount int) ([]stream.Message, error) {
	ctx, span := c.tracer.StartSpan(ctx, "client.receive_messages")
	defer span.End()

	span.SetAttributes(c.tracer.StreamAttributes(c.stream, c.group)...)
	span.SetAttributes(attribute.Int("stream.max_count", maxCount))

	msgs, err := c.client.ReceiveMessages(ctx, maxCount)

	span.SetAttributes(attribute.Int("stream.messages_received", len(msgs)))

	if err != nil {
		c.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(c.tracer.ErrorAttributes(err)...)

	return msgs, err
}

// Ack implements stream.Client.Ack with distributed tracing
func (c *TracedClient) Ack(ctx context.Context, msg stream.Message) error {
	ctx, span := c.tracer.StartSpan(ctx, "client.ack")
	defer span.End()

	span.SetAttributes(c.tracer.StreamAttributes(msg.Ack.Stream, msg.Ack.Group)...)
	span.SetAttributes(
		attribute.String("stream.message_id", msg.ID),
		attribute.String("stream.on_failure", string(msg.Ack.OnFailure())),
	)

	err := c.client.Ack(ctx, msg)

	if err != nil {
		c.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(c.tracer.ErrorAttributes(err)...)

	return err
}
