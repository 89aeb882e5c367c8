// Package redis provides the glue between this module and the Redis Streams
// store: connection setup and consumer-group bootstrap. All stream reads and
// acknowledgments go through internal/stream/client; this package only owns
// the administrative surface.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Username string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(ctx context.Context, opts Options) (*goredis.Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}

	return rdb, nil
}

// EnsureGroup creates the consumer group on the stream, creating the stream
// itself if it does not exist yet. An already-existing group is not an error.
// start is the id the group begins reading from; "$" means new entries only,
// "0" means the whole stream.
func EnsureGroup(ctx context.Context, rdb *goredis.Client, stream, group, start string) error {
	if start == "" {
		start = "$"
	}

	err := rdb.XGroupCreateMkStream(ctx, stream, group, start).Err()
	if err != nil && !IsBusyGroup(err) {
		return fmt.Errorf("failed to create group %s on stream %s: %w", group, stream, err)
	}

	return nil
}

// IsBusyGroup reports whether err is the BUSYGROUP reply Redis returns when
// the consumer group already exists.
func IsBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
