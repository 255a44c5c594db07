package facilitator

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Abdullah1738/relay-facilitator/internal/payment"
	"github.com/Abdullah1738/relay-facilitator/internal/relay"
)

type DirectPaymentResponse struct {
	Status int `json:"-"`

	Success   bool   `json:"success"`
	Signature string `json:"signature,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Memo      string `json:"memo,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DirectPayment is a test stub: it returns a synthetic confirmation and never
// talks to the relay or the chain.
func (f *Facilitator) DirectPayment(_ context.Context, req payment.DirectPayment) (DirectPaymentResponse, error) {
	if err := payment.ValidateDirectPayment(req); err != nil {
		return DirectPaymentResponse{Status: http.StatusBadRequest, Error: validationMessage(err)}, nil
	}

	sig, err := relay.RandomSignature()
	if err != nil {
		return DirectPaymentResponse{}, err
	}
	return DirectPaymentResponse{
		Status:    http.StatusOK,
		Success:   true,
		Signature: sig,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		Memo:      req.Memo,
		PaymentID: uuid.NewString(),
		Timestamp: f.now().UTC().Format(time.RFC3339),
	}, nil
}
