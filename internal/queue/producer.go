package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/Shopify/sarama"

	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
)

// Fallback handles a message that could not be handed to the broker.
type Fallback func(ctx context.Context, msg IndexMessage)

// Producer publishes indexing intents to Kafka. The message key is the
// tenant id and the hash partitioner is configured on the client, so
// messages for one tenant keep their submission order within a partition.
//
// Publish never surfaces broker errors to the caller: a failed hand-off for
// a topic with a registered fallback is re-routed there (for the indexing
// topics the fallback enqueues the job directly, bypassing the queue);
// unknown topics log a warning and drop the message.
type Producer struct {
	producer  sarama.SyncProducer
	source    string
	fallbacks map[string]Fallback
}

// NewProducerConfig returns the sarama config used for publishing.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	// key controls the partition: per-tenant ordering
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

func NewProducer(producer sarama.SyncProducer, source string) *Producer {
	return &Producer{
		producer:  producer,
		source:    source,
		fallbacks: make(map[string]Fallback),
	}
}

// RegisterFallback wires the direct-enqueue path used when the broker is
// unreachable. Must be called during startup, before Publish.
func (p *Producer) RegisterFallback(topic string, fb Fallback) {
	p.fallbacks[topic] = fb
}

// Publish serializes msg and hands it to the broker with standard headers.
func (p *Producer) Publish(ctx context.Context, topic string, msg IndexMessage) {
	if p.producer == nil {
		// broker was unreachable at startup; run in degraded local mode
		p.fallback(ctx, topic, msg)
		return
	}
	payload, err := msg.Encode()
	if err != nil {
		logger.Errorf("queue: encode message for %s: %v", topic, err)
		p.fallback(ctx, topic, msg)
		return
	}

	pm := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(msg.TenantID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("ts"), Value: []byte(strconv.FormatInt(time.Now().Unix(), 10))},
			{Key: []byte("source"), Value: []byte(p.source)},
		},
	}

	if _, _, err := p.producer.SendMessage(pm); err != nil {
		logger.Errorf("queue: publish to %s failed: %v", topic, err)
		metrics.QueuePublished.WithLabelValues(topic, "error").Inc()
		p.fallback(ctx, topic, msg)
		return
	}
	metrics.QueuePublished.WithLabelValues(topic, "ok").Inc()
}

func (p *Producer) fallback(ctx context.Context, topic string, msg IndexMessage) {
	fb, ok := p.fallbacks[topic]
	if !ok {
		// documented data-loss risk: only acceptable for non-critical topics
		logger.Warnf("queue: no fallback for topic %s, dropping message doc=%s tenant=%s", topic, msg.DocumentID, msg.TenantID)
		metrics.QueuePublished.WithLabelValues(topic, "dropped").Inc()
		return
	}
	metrics.QueuePublished.WithLabelValues(topic, "fallback").Inc()
	fb(ctx, msg)
}

// Close releases the underlying producer.
func (p *Producer) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// EnsureTopics creates the given topics if they do not exist yet.
// Safe to call on every startup.
func EnsureTopics(brokers []string, partitions int32, topics ...string) error {
	cfg := NewProducerConfig()
	admin, err := sarama.NewClusterAdmin(brokers, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = admin.Close() }()

	existing, err := admin.ListTopics()
	if err != nil {
		return err
	}
	for _, topic := range topics {
		if _, ok := existing[topic]; ok {
			continue
		}
		detail := &sarama.TopicDetail{NumPartitions: partitions, ReplicationFactor: 1}
		if err := admin.CreateTopic(topic, detail, false); err != nil {
			if terr, ok := err.(*sarama.TopicError); ok && terr.Err == sarama.ErrTopicAlreadyExists {
				continue
			}
			return err
		}
		logger.Infof("queue: created topic %s with %d partitions", topic, partitions)
	}
	return nil
}
