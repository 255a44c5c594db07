package broker

import (
	"encoding/json"
	"time"
)

type Envelope struct {
	Version    string          `json:"version"`
	Kind       string          `json:"kind"`
	Network    string          `json:"network"`
	RequestID  string          `json:"request_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}
