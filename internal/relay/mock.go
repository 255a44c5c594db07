package relay

import (
	"context"
	"crypto/rand"

	"github.com/gagliardetto/solana-go"
)

// MockFeePayer is reported by the mock client when no override is configured.
const MockFeePayer = "MockFeePayer1111111111111111111111111111111"

// Mock fabricates successful relay responses without touching the network.
type Mock struct {
	feePayer string
}

var _ Client = (*Mock)(nil)

func NewMock(feePayer string) *Mock {
	if feePayer == "" {
		feePayer = MockFeePayer
	}
	return &Mock{feePayer: feePayer}
}

func (m *Mock) Sign(ctx context.Context, _ string) (string, error) {
	return m.signature(ctx, methodSignTransaction)
}

func (m *Mock) SignAndSend(ctx context.Context, _ string) (string, error) {
	return m.signature(ctx, methodSignAndSendTransaction)
}

func (m *Mock) FeePayerAddress(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable(methodGetPayerSigner, err)
	}
	return m.feePayer, nil
}

func (m *Mock) signature(ctx context.Context, op string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable(op, err)
	}
	sig, err := RandomSignature()
	if err != nil {
		return "", unavailable(op, err)
	}
	return sig, nil
}

// RandomSignature returns a fresh base58 signature so consecutive calls never collide.
func RandomSignature() (string, error) {
	var sig solana.Signature
	if _, err := rand.Read(sig[:]); err != nil {
		return "", err
	}
	return sig.String(), nil
}
