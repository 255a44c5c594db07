// Package payment holds the request model of the facilitator and the
// structural checks applied before any relay call.
package payment

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Payload is the body of /verify and /settle.
type Payload struct {
	Version     string    `json:"version"`
	Network     string    `json:"network"`
	Transaction string    `json:"transaction"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

type Metadata struct {
	Endpoint  string `json:"endpoint"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

// DirectPayment is the body of the test-only /payment route.
type DirectPayment struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Memo      string `json:"memo,omitempty"`
}

// ValidationError is a structural failure detected before any external call.
// Its message is safe to return to clients.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrMissingTransaction   = &ValidationError{Code: "missing_transaction", Message: "Missing transaction data"}
	ErrMissingMetadata      = &ValidationError{Code: "missing_metadata", Message: "Missing payment metadata"}
	ErrInvalidAmount        = &ValidationError{Code: "invalid_amount", Message: "Invalid payment amount"}
	ErrMissingPaymentFields = &ValidationError{Code: "missing_payment_fields", Message: "Missing recipient or amount"}
)

// ValidateVerify checks transaction, metadata and amount, in that order.
func ValidateVerify(p Payload) error {
	if err := ValidateSettle(p); err != nil {
		return err
	}
	if p.Metadata == nil {
		return ErrMissingMetadata
	}
	if _, err := ParseAmount(p.Metadata.Amount); err != nil {
		return err
	}
	return nil
}

// ValidateSettle only requires the transaction bytes; metadata is not inspected.
func ValidateSettle(p Payload) error {
	if strings.TrimSpace(p.Transaction) == "" {
		return ErrMissingTransaction
	}
	return nil
}

func ValidateDirectPayment(p DirectPayment) error {
	if strings.TrimSpace(p.Recipient) == "" || strings.TrimSpace(p.Amount) == "" {
		return ErrMissingPaymentFields
	}
	return nil
}

// ParseAmount accepts a decimal string strictly greater than zero whose
// magnitude fits a float64 without overflowing or rounding to zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if f, _ := d.Float64(); f == 0 || math.IsInf(f, 0) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
