package queue

import (
	"context"
	"time"

	"github.com/Shopify/sarama"

	"github.com/docgate/docgate/pkg/logger"
)

// Enqueuer dispatches a decoded message as a background indexing job.
type Enqueuer interface {
	EnqueueIndex(ctx context.Context, docID, tenantID string)
	EnqueueDelete(ctx context.Context, docID, tenantID string)
}

// Consumer drains the indexing topics and turns each message into a job.
// One message failing to decode or enqueue never blocks the rest of the
// claim; the offset is always marked so a poison message cannot wedge the
// partition.
type Consumer struct {
	topicIndex  string
	topicDelete string
	jobs        Enqueuer
}

func NewConsumer(topicIndex, topicDelete string, jobs Enqueuer) *Consumer {
	return &Consumer{topicIndex: topicIndex, topicDelete: topicDelete, jobs: jobs}
}

// NewConsumerConfig returns the sarama config used by the worker group.
func NewConsumerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true
	return cfg
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	logger.Infof("queue: consumer group session starting")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	logger.Infof("queue: consumer group session ending")
	return nil
}

// ConsumeClaim processes one partition claim message by message.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		c.Handle(session.Context(), msg.Topic, msg.Value)
		session.MarkMessage(msg, "")
	}
	return nil
}

// Handle decodes one message and enqueues the matching job. Malformed
// payloads are logged and skipped; missing ids are tolerated as empty and
// rejected by the job itself.
func (c *Consumer) Handle(ctx context.Context, topic string, payload []byte) {
	msg, err := DecodeIndexMessage(payload)
	if err != nil {
		logger.Errorf("queue: malformed message on %s: %v", topic, err)
		return
	}

	switch topic {
	case c.topicIndex:
		c.jobs.EnqueueIndex(ctx, msg.DocumentID, msg.TenantID)
	case c.topicDelete:
		c.jobs.EnqueueDelete(ctx, msg.DocumentID, msg.TenantID)
	default:
		logger.Warnf("queue: message on unexpected topic %s", topic)
	}
}

// Run joins the consumer group and consumes until ctx is cancelled.
// Claim-level errors are logged and consumption resumes.
func (c *Consumer) Run(ctx context.Context, group sarama.ConsumerGroup) {
	go func() {
		for err := range group.Errors() {
			logger.Errorf("queue: consumer group error: %v", err)
		}
	}()

	topics := []string{c.topicIndex, c.topicDelete}
	for {
		if err := group.Consume(ctx, topics, c); err != nil {
			logger.Errorf("queue: consume error: %v", err)
			// do not spin when the broker is unreachable
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}
