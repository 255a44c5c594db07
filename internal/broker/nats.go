//go:build nats

package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type natsBroker struct {
	nc      *nats.Conn
	subject string
}

func openNATS(ctx context.Context, cfg Config) (Broker, error) {
	timeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			timeout = d
		}
	}
	nc, err := nats.Connect(cfg.URL, nats.Name(cfg.ClientID), nats.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("broker: nats connect: %w", err)
	}
	return &natsBroker{nc: nc, subject: cfg.Topic}, nil
}

func (b *natsBroker) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("broker: nats publish: %w", err)
	}

	m := &nats.Msg{
		Subject: b.subject,
		Data:    msg.Value,
		Header:  nats.Header{},
	}
	if msg.Key != "" {
		m.Header.Set("x-key", msg.Key)
	}
	if msg.Kind != "" {
		m.Header.Set("x-kind", msg.Kind)
	}
	if err := b.nc.PublishMsg(m); err != nil {
		return fmt.Errorf("broker: nats publish: %w", err)
	}
	return nil
}

func (b *natsBroker) Close() error {
	if b == nil || b.nc == nil {
		return nil
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
	}
	return nil
}
