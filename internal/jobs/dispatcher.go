package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
)

const (
	KindIndex  = "index"
	KindDelete = "delete"
)

// Task is one unit of engine work. Attempt starts at 1.
type Task struct {
	Kind       string
	DocumentID string
	TenantID   string
	Attempt    int
}

// Options tune the worker pool and the retry schedule.
type Options struct {
	PoolSize    int
	MaxAttempts int
	BaseBackoff time.Duration
}

func (o *Options) defaults() {
	if o.PoolSize <= 0 {
		o.PoolSize = 16
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 500 * time.Millisecond
	}
}

// Dispatcher runs indexing tasks on a bounded pool. Failed tasks are retried
// with doubling backoff until MaxAttempts, then parked in the dead letter
// store. It satisfies both the consumer's enqueue interface and the
// producer's local fallback.
type Dispatcher struct {
	pool *ants.Pool
	ix   *Indexer
	dead *DeadLetterStore
	opts Options
	wg   sync.WaitGroup
}

func NewDispatcher(ix *Indexer, dead *DeadLetterStore, opts Options) (*Dispatcher, error) {
	opts.defaults()
	pool, err := ants.NewPool(opts.PoolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &Dispatcher{pool: pool, ix: ix, dead: dead, opts: opts}, nil
}

func (d *Dispatcher) EnqueueIndex(_ context.Context, docID, tenantID string) {
	d.submit(Task{Kind: KindIndex, DocumentID: docID, TenantID: tenantID, Attempt: 1})
}

func (d *Dispatcher) EnqueueDelete(_ context.Context, docID, tenantID string) {
	d.submit(Task{Kind: KindDelete, DocumentID: docID, TenantID: tenantID, Attempt: 1})
}

func (d *Dispatcher) submit(t Task) {
	d.wg.Add(1)
	if err := d.pool.Submit(func() { d.run(t) }); err != nil {
		d.wg.Done()
		logger.L().Error("job pool rejected task",
			zap.String("kind", t.Kind), zap.String("document_id", t.DocumentID), zap.Error(err))
	}
}

func (d *Dispatcher) run(t Task) {
	// jobs outlive the message that spawned them, so they do not inherit
	// the consumer session context
	ctx := context.Background()

	var err error
	switch t.Kind {
	case KindIndex:
		err = d.ix.Index(ctx, t.DocumentID, t.TenantID)
	case KindDelete:
		err = d.ix.Delete(ctx, t.DocumentID, t.TenantID)
	}
	if err == nil {
		metrics.JobsProcessed.WithLabelValues(t.Kind, "success").Inc()
		d.wg.Done()
		return
	}

	if t.Attempt >= d.opts.MaxAttempts {
		metrics.JobsProcessed.WithLabelValues(t.Kind, "dead_letter").Inc()
		logger.L().Error("job exhausted retries, dead-lettering",
			zap.String("kind", t.Kind),
			zap.String("document_id", t.DocumentID),
			zap.String("tenant_id", t.TenantID),
			zap.Int("attempts", t.Attempt),
			zap.Error(err))
		if derr := d.dead.Record(ctx, t.Kind, t.DocumentID, t.TenantID, t.Attempt, err); derr != nil {
			logger.Errorf("failed to record dead letter for %s: %v", t.DocumentID, derr)
		}
		d.wg.Done()
		return
	}

	metrics.JobsProcessed.WithLabelValues(t.Kind, "retry").Inc()
	backoff := d.opts.BaseBackoff << (t.Attempt - 1)
	next := t
	next.Attempt++
	logger.L().Warn("job failed, scheduling retry",
		zap.String("kind", t.Kind),
		zap.String("document_id", t.DocumentID),
		zap.Int("next_attempt", next.Attempt),
		zap.Duration("backoff", backoff),
		zap.Error(err))
	time.AfterFunc(backoff, func() {
		if serr := d.pool.Submit(func() { d.run(next) }); serr != nil {
			d.wg.Done()
			logger.Errorf("job pool rejected retry for %s: %v", next.DocumentID, serr)
		}
	})
}

// Drain waits for in-flight tasks, including scheduled retries, to reach a
// terminal outcome.
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}

func (d *Dispatcher) Close() {
	d.Drain()
	d.pool.Release()
}
