package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
)

// ErrOpen is returned when a call is rejected without invoking the
// underlying dependency.
var ErrOpen = errors.New("circuit breaker open")

// Settings configures one named breaker.
type Settings struct {
	// CallTimeout bounds each wrapped call; a timeout counts as a failure.
	CallTimeout time.Duration
	// SleepWindow is how long the breaker stays open before allowing a trial.
	SleepWindow time.Duration
	// RollingWindow is the tally window for failure accounting.
	RollingWindow time.Duration
	// VolumeThreshold is the minimum number of calls in the rolling window
	// before the failure rate is considered at all.
	VolumeThreshold int64
	// ErrorThreshold is the failure rate (0..1) that trips the breaker.
	ErrorThreshold float64
}

// Breaker guards calls to one unreliable dependency. State lives in Redis
// (INCR tallies, SET NX trial token) so many workers sharing the store agree
// on open/closed without application-level locks.
//
// closed: calls run normally, failures are tallied over RollingWindow.
// open:   calls fail fast with ErrOpen until SleepWindow lapses.
// half-open: exactly one trial call is admitted (SET NX token); success
// closes the breaker and clears tallies, failure re-opens it.
type Breaker struct {
	name   string
	client *redis.Client
	cfg    Settings
}

func New(name string, client *redis.Client, cfg Settings) *Breaker {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 3 * time.Second
	}
	if cfg.SleepWindow <= 0 {
		cfg.SleepWindow = 10 * time.Second
	}
	if cfg.RollingWindow <= 0 {
		cfg.RollingWindow = time.Minute
	}
	return &Breaker{name: name, client: client, cfg: cfg}
}

func (b *Breaker) key(suffix string) string {
	return "breaker:" + b.name + ":" + suffix
}

// Do executes op unless the breaker is open. Errors from op propagate
// unchanged; the breaker only decides whether to attempt the call.
func (b *Breaker) Do(ctx context.Context, op func(context.Context) error) error {
	open, probation := b.state(ctx)
	if open {
		metrics.BreakerState.WithLabelValues(b.name).Set(1)
		metrics.BreakerShortCircuits.WithLabelValues(b.name).Inc()
		return ErrOpen
	}

	if probation {
		// half-open: admit a single trial via SET NX
		ok, err := b.client.SetNX(ctx, b.key("trial"), 1, b.cfg.CallTimeout+time.Second).Result()
		if err == nil && !ok {
			metrics.BreakerState.WithLabelValues(b.name).Set(2)
			metrics.BreakerShortCircuits.WithLabelValues(b.name).Inc()
			return ErrOpen
		}
		metrics.BreakerState.WithLabelValues(b.name).Set(2)
		callErr := b.invoke(ctx, op)
		if callErr != nil {
			b.reopen(ctx)
			return callErr
		}
		b.reset(ctx)
		return nil
	}

	metrics.BreakerState.WithLabelValues(b.name).Set(0)
	callErr := b.invoke(ctx, op)
	b.record(ctx, callErr)
	return callErr
}

// invoke runs op under the per-call timeout.
func (b *Breaker) invoke(ctx context.Context, op func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()
	return op(callCtx)
}

// state reports (open, probation). Store errors are logged and treated as
// closed: an unreachable Redis must not also take down healthy calls.
func (b *Breaker) state(ctx context.Context) (bool, bool) {
	vals, err := b.client.MGet(ctx, b.key("open"), b.key("probe")).Result()
	if err != nil {
		logger.Warnf("breaker %s: state check failed, assuming closed: %v", b.name, err)
		return false, false
	}
	return vals[0] != nil, vals[1] != nil
}

func (b *Breaker) record(ctx context.Context, callErr error) {
	total, err := b.client.Incr(ctx, b.key("total")).Result()
	if err != nil {
		logger.Warnf("breaker %s: tally failed: %v", b.name, err)
		return
	}
	if total == 1 {
		_ = b.client.Expire(ctx, b.key("total"), b.cfg.RollingWindow).Err()
	}

	if callErr == nil {
		return
	}
	failures, err := b.client.Incr(ctx, b.key("failures")).Result()
	if err != nil {
		logger.Warnf("breaker %s: tally failed: %v", b.name, err)
		return
	}
	if failures == 1 {
		_ = b.client.Expire(ctx, b.key("failures"), b.cfg.RollingWindow).Err()
	}

	if total >= b.cfg.VolumeThreshold && float64(failures)/float64(total) >= b.cfg.ErrorThreshold {
		b.trip(ctx)
	}
}

func (b *Breaker) trip(ctx context.Context) {
	logger.Warnf("breaker %s: tripped open for %s", b.name, b.cfg.SleepWindow)
	metrics.BreakerState.WithLabelValues(b.name).Set(1)
	pipe := b.client.Pipeline()
	pipe.Set(ctx, b.key("open"), 1, b.cfg.SleepWindow)
	// probe outlives the open key so the window after it lapses is
	// recognized as half-open rather than closed
	pipe.Set(ctx, b.key("probe"), 1, b.cfg.SleepWindow+b.cfg.RollingWindow)
	pipe.Del(ctx, b.key("total"), b.key("failures"))
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnf("breaker %s: trip failed: %v", b.name, err)
	}
}

// reopen restarts the sleep window after a failed trial call.
func (b *Breaker) reopen(ctx context.Context) {
	logger.Warnf("breaker %s: trial call failed, reopening", b.name)
	metrics.BreakerState.WithLabelValues(b.name).Set(1)
	pipe := b.client.Pipeline()
	pipe.Set(ctx, b.key("open"), 1, b.cfg.SleepWindow)
	pipe.Set(ctx, b.key("probe"), 1, b.cfg.SleepWindow+b.cfg.RollingWindow)
	pipe.Del(ctx, b.key("trial"))
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnf("breaker %s: reopen failed: %v", b.name, err)
	}
}

// reset closes the breaker after a successful trial call.
func (b *Breaker) reset(ctx context.Context) {
	logger.Infof("breaker %s: trial call succeeded, closing", b.name)
	metrics.BreakerState.WithLabelValues(b.name).Set(0)
	if err := b.client.Del(ctx, b.key("open"), b.key("probe"), b.key("trial"), b.key("total"), b.key("failures")).Err(); err != nil {
		logger.Warnf("breaker %s: reset failed: %v", b.name, err)
	}
}

// Name identifies the guarded dependency.
func (b *Breaker) Name() string { return b.name }

// String implements fmt.Stringer for log call sites.
func (b *Breaker) String() string {
	return fmt.Sprintf("breaker(%s)", b.name)
}
