//go:build integration && docker

package publisher

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Abdullah1738/relay-facilitator/internal/broker"
	"github.com/Abdullah1738/relay-facilitator/internal/events"
	"github.com/Abdullah1738/relay-facilitator/internal/testutil/containers"
)

// brokerURL returns envURL when set, otherwise starts a container for driver.
func brokerURL(t *testing.T, driver, envURL string) string {
	t.Helper()
	if os.Getenv("FACILITATOR_TEST_DOCKER") == "" {
		t.Skip("set FACILITATOR_TEST_DOCKER=1 to run broker integration tests")
	}
	if u := os.Getenv(envURL); u != "" {
		return u
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	b, err := containers.StartBroker(ctx, driver)
	if err != nil {
		t.Fatalf("StartBroker(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = b.Terminate(context.Background()) })
	return b.URL
}

func publishSettled(t *testing.T, ctx context.Context, br broker.Broker, signature string) {
	t.Helper()
	pub, err := New(br, Config{QueueSize: 4, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("publisher.New: %v", err)
	}
	e := events.Event{
		Kind:      events.KindPaymentSettled,
		Network:   "solana-devnet",
		RequestID: "req-it",
		Payload: events.PaymentSettledPayload{
			Network:   "solana-devnet",
			Signature: signature,
		},
	}
	if err := pub.publishOne(ctx, e); err != nil {
		t.Fatalf("publishOne: %v", err)
	}
}

func checkEnvelope(t *testing.T, data []byte, signature string) {
	t.Helper()
	var env broker.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Kind != events.KindPaymentSettled {
		t.Fatalf("env.kind=%q want %q", env.Kind, events.KindPaymentSettled)
	}
	if env.Network != "solana-devnet" {
		t.Fatalf("env.network=%q", env.Network)
	}
	var payload events.PaymentSettledPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Signature != signature {
		t.Fatalf("payload.signature=%q want %q", payload.Signature, signature)
	}
}
