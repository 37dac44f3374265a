package amqp

import (
	"encoding/json"
	"time"
)

// ObservationCreatedMessage announces a newly stored observation. It only
// carries the id; consumers read the row from the store.
type ObservationCreatedMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewObservationCreatedMessage(id int64) *ObservationCreatedMessage {
	return &ObservationCreatedMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *ObservationCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ObservationCreatedMessageFromJSON(data []byte) (*ObservationCreatedMessage, error) {
	var msg ObservationCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
