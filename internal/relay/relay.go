// Package relay talks to the gasless transaction relay that co-signs and
// broadcasts payment transactions on behalf of a sponsoring fee payer.
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdullah1738/relay-facilitator/internal/config"
)

// Client is the contract the facilitator expects from the relay.
type Client interface {
	// Sign asks the relay to validate and co-sign a base64 transaction without broadcasting it.
	Sign(ctx context.Context, encodedTx string) (string, error)
	// SignAndSend asks the relay to co-sign and broadcast; it returns the transaction signature.
	SignAndSend(ctx context.Context, encodedTx string) (string, error)
	// FeePayerAddress returns the relay's fee-sponsor account.
	FeePayerAddress(ctx context.Context) (string, error)
}

var (
	// ErrRejected marks an explicit refusal by the relay (malformed tx, policy, funds).
	ErrRejected = errors.New("relay rejected request")
	// ErrUnavailable marks transport failures, timeouts and unexpected HTTP statuses.
	ErrUnavailable = errors.New("relay unavailable")
)

// Error is returned by every Client operation.
type Error struct {
	Op      string
	Message string

	kind  error
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("relay: %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	for _, err := range []error{e.kind, e.cause} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func rejected(op, message string) *Error {
	return &Error{Op: op, Message: message, kind: ErrRejected}
}

func unavailable(op string, cause error) *Error {
	return &Error{Op: op, Message: cause.Error(), kind: ErrUnavailable, cause: cause}
}

// New picks the mock or live client. Both are safe for concurrent use.
func New(cfg config.Config) Client {
	if cfg.MockMode {
		return NewMock(cfg.MockFeePayer)
	}
	return NewRPCClient(cfg.RelayURL, cfg.RelayAPIKey, cfg.RelayTimeout)
}
