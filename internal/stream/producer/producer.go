// Package producer implements the demand-driven poll loop that bridges a
// Redis Streams consumer group to a push-based downstream pipeline.
//
// All state (outstanding demand, the poll timer, the drain flag) is owned by
// the single goroutine running Run. Demand increases, timer expiries, and
// drain requests are serialized through one inbox, so there are no locks and
// at most one poll timer is ever armed.
package producer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"redstream/internal/stream"
	"redstream/internal/validator"
)

// DefaultPollInterval is the delay before retrying after an empty fetch.
const DefaultPollInterval = 5 * time.Second

// Handler receives the messages fetched by one poll, in store order. It is
// invoked inline from the producer's loop; a slow handler delays the next
// poll, never reorders it.
type Handler func(ctx context.Context, msgs []stream.Message)

// Options configures a Producer.
type Options struct {
	Client  stream.Client
	Handler Handler
	Logger  *zap.Logger
	// PollInterval is the backoff after an empty fetch. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration
	// OnFetchError, if set, observes fetch failures. The scheduler treats a
	// failed fetch like an empty batch and arms the normal backoff timer; the
	// hook exists so failures are visible, not swallowed.
	OnFetchError func(err error)
	// OnDemandChange, if set, observes every change to the outstanding
	// credit. Called from the producer's own goroutine, so implementations
	// must not block.
	OnDemandChange func(outstanding int)
}

type eventKind int

const (
	evAsk eventKind = iota
	evTimer
	evDrain
)

type event struct {
	kind eventKind
	n    int    // evAsk: demand increment
	gen  uint64 // evTimer: generation the timer was armed with
}

// Producer converts downstream demand credit into bounded fetches against the
// stream client and emits the results through its handler.
type Producer struct {
	client         stream.Client
	handler        Handler
	logger         *zap.Logger
	pollInterval   time.Duration
	onFetchError   func(error)
	onDemandChange func(int)

	events  chan event
	stopped chan struct{}

	// owned exclusively by the Run goroutine
	demand   stream.DemandAccumulator
	timer    *time.Timer
	timerGen uint64
	armed    bool
	draining bool
}

// New validates the options and returns a producer. Run must be called before
// the producer will act on demand.
func New(opts Options) (*Producer, error) {
	p := Producer{
		client:         opts.Client,
		handler:        opts.Handler,
		logger:         opts.Logger,
		pollInterval:   opts.PollInterval,
		onFetchError:   opts.OnFetchError,
		onDemandChange: opts.OnDemandChange,
		events:         make(chan event, 64),
		stopped:        make(chan struct{}),
	}

	if err := validator.Validate("producer", p.client, p.handler, p.logger); err != nil {
		return nil, fmt.Errorf("failed to validate producer deps: %w", err)
	}

	if p.pollInterval == 0 {
		p.pollInterval = DefaultPollInterval
	}
	if p.pollInterval < 0 {
		return nil, &stream.ConfigError{Option: "pollInterval", Reason: "must not be negative"}
	}

	p.logger = p.logger.Named("producer")

	return &p, nil
}

// Ask adds n to the outstanding demand credit. If no poll timer is armed, a
// poll happens immediately; otherwise the armed timer picks up the extra
// credit when it fires. Asking a drained producer is a no-op.
func (p *Producer) Ask(n int) {
	if n < 0 {
		panic(fmt.Sprintf("producer: negative demand %d", n))
	}
	if n == 0 {
		return
	}

	select {
	case p.events <- event{kind: evAsk, n: n}:
	case <-p.stopped:
	}
}

// PrepareForDrain cancels any scheduled poll and stops the producer from ever
// scheduling another one. It is idempotent and never blocks on in-flight
// work; messages already emitted downstream are unaffected.
func (p *Producer) PrepareForDrain() {
	select {
	case p.events <- event{kind: evDrain}:
	case <-p.stopped:
	}
}

// Run processes demand, timer, and drain events one at a time until ctx is
// canceled. The fetch call is the only operation that takes wall-clock time
// and it happens synchronously inside the loop, so polls never overlap.
func (p *Producer) Run(ctx context.Context) error {
	defer close(p.stopped)
	defer p.cancelTimer()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			p.handle(ctx, ev)
		}
	}
}

func (p *Producer) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evAsk:
		if p.draining {
			return
		}

		p.demand.Add(ev.n)
		p.reportDemand()
		p.logger.Debug("demand increased",
			zap.Int("added", ev.n),
			zap.Int("outstanding", p.demand.Outstanding()),
		)

		if !p.armed {
			p.poll(ctx)
		}
	case evTimer:
		// A stale generation means the timer fired in a race with a cancel
		// or a re-arm; its expiry must not be honored.
		if p.draining || !p.armed || ev.gen != p.timerGen {
			return
		}

		p.armed = false
		p.timer = nil

		if p.demand.Outstanding() == 0 {
			// Nothing to fetch; never call the client with zero demand.
			return
		}

		p.poll(ctx)
	case evDrain:
		p.cancelTimer()
		p.draining = true
		p.logger.Info("drain requested, no further polls will be scheduled",
			zap.Int("outstanding", p.demand.Outstanding()),
		)
	}
}

// poll runs one poll transition: fetch up to the outstanding demand, emit
// what came back, and decide the next timer. Entered only with demand > 0 and
// no timer armed.
func (p *Producer) poll(ctx context.Context) {
	want := p.demand.Outstanding()

	msgs, err := p.client.ReceiveMessages(ctx, want)
	if err != nil {
		p.logger.Warn("fetch failed, backing off", zap.Error(err), zap.Duration("interval", p.pollInterval))
		if p.onFetchError != nil {
			p.onFetchError(err)
		}

		p.armTimer(p.pollInterval)
		return
	}

	k := len(msgs)
	p.demand.Consume(k)
	p.reportDemand()

	if k > 0 {
		p.handler(ctx, msgs)
	}

	switch {
	case k == 0:
		// Empty fetch: back off at the configured cadence instead of
		// tight-looping against an empty stream.
		p.armTimer(p.pollInterval)
	case p.demand.Outstanding() > 0:
		// Partial fetch left residual credit; the store may have more
		// entries already, so retry without an artificial wait.
		p.armTimer(0)
	default:
		// Demand fully satisfied: idle until downstream asks again.
	}
}

func (p *Producer) reportDemand() {
	if p.onDemandChange != nil {
		p.onDemandChange(p.demand.Outstanding())
	}
}

func (p *Producer) armTimer(d time.Duration) {
	p.cancelTimer()

	p.timerGen++
	gen := p.timerGen
	p.armed = true
	p.timer = time.AfterFunc(d, func() {
		select {
		case p.events <- event{kind: evTimer, gen: gen}:
		case <-p.stopped:
		}
	})
}

func (p *Producer) cancelTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.armed = false
}
