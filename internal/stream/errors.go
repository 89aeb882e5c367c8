package stream

import "fmt"

// ConfigError reports invalid or missing configuration. It is fatal: a
// producer must not start with a broken config.
type ConfigError struct {
	// Option names the offending configuration option.
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Option, e.Reason)
}

// FetchError wraps a transport-level failure from the store during a fetch.
// The scheduler treats it like an empty batch: it arms the normal backoff
// timer and reports the error through its observability hook.
type FetchError struct {
	Stream string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from stream %s failed: %v", e.Stream, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
