package queue

import "context"

// Intents binds the producer to the two indexing topics so callers publish
// by intent instead of by topic name.
type Intents struct {
	producer    *Producer
	topicIndex  string
	topicDelete string
}

func NewIntents(producer *Producer, topicIndex, topicDelete string) *Intents {
	return &Intents{producer: producer, topicIndex: topicIndex, topicDelete: topicDelete}
}

func (i *Intents) PublishIndex(ctx context.Context, docID, tenantID string) {
	i.producer.Publish(ctx, i.topicIndex, IndexMessage{
		DocumentID: docID,
		TenantID:   tenantID,
		Action:     ActionIndex,
	})
}

func (i *Intents) PublishDelete(ctx context.Context, docID, tenantID string) {
	i.producer.Publish(ctx, i.topicDelete, IndexMessage{
		DocumentID: docID,
		TenantID:   tenantID,
		Action:     ActionDelete,
	})
}
