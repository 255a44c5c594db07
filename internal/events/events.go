package events

import "time"

const (
	KindPaymentVerified  = "PaymentVerified"
	KindPaymentRejected  = "PaymentRejected"
	KindPaymentSettled   = "PaymentSettled"
	KindSettlementFailed = "SettlementFailed"
)

// Event is one verify or settle outcome.
type Event struct {
	Kind       string
	Network    string
	RequestID  string
	OccurredAt time.Time
	Payload    any
}

// Key groups related events on the broker; settled payments key by signature.
func (e Event) Key() string {
	switch p := e.Payload.(type) {
	case PaymentSettledPayload:
		return p.Signature
	case *PaymentSettledPayload:
		return p.Signature
	}
	return e.RequestID
}

type PaymentVerifiedPayload struct {
	Network   string `json:"network"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	Endpoint  string `json:"endpoint,omitempty"`
	Format    string `json:"format"`
	Parsed    bool   `json:"parsed"`
}

type PaymentRejectedPayload struct {
	Network string `json:"network"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
	Format  string `json:"format,omitempty"`
}

type PaymentSettledPayload struct {
	Network     string `json:"network"`
	Signature   string `json:"signature"`
	ExplorerURL string `json:"explorer_url"`
}

type SettlementFailedPayload struct {
	Network string `json:"network"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
}

const (
	StageValidation = "validation"
	StageRelay      = "relay"
)

// Sink receives outcome events. Emit must not block the caller.
type Sink interface {
	Emit(e Event)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}
