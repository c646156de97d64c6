package queue

import "encoding/json"

// Actions carried by index messages.
const (
	ActionIndex  = "index"
	ActionDelete = "delete"
)

// IndexMessage is the queue payload for document indexing intents.
// Delivery is at-least-once; consumers must be idempotent.
type IndexMessage struct {
	DocumentID string `json:"document_id"`
	TenantID   string `json:"tenant_id"`
	Action     string `json:"action"`
}

// Encode serializes the message for the wire.
func (m IndexMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeIndexMessage parses a payload. Missing fields are tolerated; absent
// ids come back as empty strings rather than failing the message.
func DecodeIndexMessage(data []byte) (IndexMessage, error) {
	var m IndexMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
