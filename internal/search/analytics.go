package search

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
)

// Event is one completed search, recorded for offline analysis.
type Event struct {
	TenantID  string    `bson:"tenant_id" json:"tenant_id"`
	Query     string    `bson:"query" json:"query"`
	Total     int64     `bson:"total" json:"total"`
	Page      int       `bson:"page" json:"page"`
	Source    string    `bson:"source" json:"source"`
	TookMS    int64     `bson:"took_ms" json:"took_ms"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// NopRecorder discards events. Used when no analytics store is configured.
type NopRecorder struct{}

func (NopRecorder) Record(Event) {}

// Sink persists a batchless stream of events.
type Sink interface {
	Write(ctx context.Context, ev Event) error
}

// MongoSink appends events to a capped-style analytics collection.
type MongoSink struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewMongoSink(coll *mongo.Collection, timeout time.Duration) *MongoSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MongoSink{coll: coll, timeout: timeout}
}

func (s *MongoSink) Write(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.coll.InsertOne(ctx, ev)
	return err
}

// Dispatcher decouples the request path from the analytics store. Record
// never blocks; when the buffer is full the event is dropped and counted.
type Dispatcher struct {
	sink Sink
	ch   chan Event
	done chan struct{}
}

func NewDispatcher(sink Sink, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		sink: sink,
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Record(ev Event) {
	select {
	case d.ch <- ev:
	default:
		metrics.AnalyticsDropped.Inc()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.ch {
		if err := d.sink.Write(context.Background(), ev); err != nil {
			logger.L().Warn("analytics write failed",
				zap.String("tenant_id", ev.TenantID), zap.Error(err))
		}
	}
}

// Close stops accepting events and waits for buffered ones to drain.
func (d *Dispatcher) Close() {
	close(d.ch)
	<-d.done
}
