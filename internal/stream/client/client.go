package client

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"redstream/internal/stream"
)

// Options bundles the resolved configuration for a stream client: the store
// connection plus the consumer-group coordinates this client reads as.
type Options struct {
	Redis    *goredis.Client
	Stream   string
	Group    string
	Consumer string
	// OnFailure is the default ack policy stamped onto every fetched message.
	// Empty means stream.AckPolicyAck.
	OnFailure stream.AckPolicy
}

// Client is the concrete stream.Client backed by Redis Streams. Fetches use
// XREADGROUP against the configured consumer group, acknowledgments use XACK.
type Client struct {
	rdb       *goredis.Client
	stream    string
	group     string
	consumer  string
	onFailure stream.AckPolicy
	logger    *zap.Logger
}

// New validates the options and returns a configured client. Validation
// failures are *stream.ConfigError values naming the offending option.
func New(opts Options, logger *zap.Logger) (*Client, error) {
	if opts.Redis == nil {
		return nil, &stream.ConfigError{Option: "redis", Reason: "connection handle is required"}
	}
	if opts.Stream == "" {
		return nil, &stream.ConfigError{Option: "stream", Reason: "stream name is required"}
	}
	if opts.Group == "" {
		return nil, &stream.ConfigError{Option: "group", Reason: "consumer group name is required"}
	}
	if opts.Consumer == "" {
		return nil, &stream.ConfigError{Option: "consumer", Reason: "consumer identity is required"}
	}

	onFailure := opts.OnFailure
	switch onFailure {
	case "":
		onFailure = stream.AckPolicyAck
	case stream.AckPolicyAck, stream.AckPolicyIgnore:
	default:
		return nil, &stream.ConfigError{
			Option: "onFailure",
			Reason: fmt.Sprintf("must be %q or %q, got %q", stream.AckPolicyAck, stream.AckPolicyIgnore, onFailure),
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		rdb:       opts.Redis,
		stream:    opts.Stream,
		group:     opts.Group,
		consumer:  opts.Consumer,
		onFailure: onFailure,
		logger:    logger.Named("stream-client"),
	}, nil
}

// ReceiveMessages implements stream.Client.ReceiveMessages with a
// non-blocking XREADGROUP. An empty stream yields an empty batch, not an
// error; transport failures come back as *stream.FetchError.
func (c *Client) ReceiveMessages(ctx context.Context, maxCount int) ([]stream.Message, error) {
	if maxCount <= 0 {
		return nil, nil
	}

	// Block < 0 disables the BLOCK option entirely so an empty stream
	// returns immediately with redis.Nil.
	res, err := c.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    int64(maxCount),
		Block:    -1,
	}).Result()
	switch {
	case err == nil:
	case errors.Is(err, goredis.Nil):
		return nil, nil
	default:
		return nil, &stream.FetchError{Stream: c.stream, Err: err}
	}

	var msgs []stream.Message
	for _, sr := range res {
		for _, entry := range sr.Messages {
			msgs = append(msgs, stream.Message{
				ID:   entry.ID,
				Data: stringValues(entry.Values),
				Ack:  stream.NewAckContext(c.stream, c.group, c.onFailure),
			})
		}
	}

	c.logger.Debug("received messages", zap.Int("count", len(msgs)), zap.Int("requested", maxCount))

	return msgs, nil
}

// Ack implements stream.Client.Ack by removing the entry from the group's
// pending-entries set.
func (c *Client) Ack(ctx context.Context, msg stream.Message) error {
	if err := c.rdb.XAck(ctx, msg.Ack.Stream, msg.Ack.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}

	return nil
}

func stringValues(values map[string]any) map[string]string {
	data := make(map[string]string, len(values))
	for k, v := range values {
		switch s := v.(type) {
		case string:
			data[k] = s
		default:
			data[k] = fmt.Sprint(v)
		}
	}

	return data
}
