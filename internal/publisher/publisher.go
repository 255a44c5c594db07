package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/Abdullah1738/relay-facilitator/internal/broker"
	"github.com/Abdullah1738/relay-facilitator/internal/events"
)

const envelopeVersion = "v1"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	QueueSize      int
	PublishTimeout time.Duration
	Logger         zerolog.Logger
}

// Publisher forwards outcome events to a broker. Emit never blocks: when the
// queue is full the event is dropped and counted.
type Publisher struct {
	br  broker.Broker
	log zerolog.Logger

	queue          chan events.Event
	publishTimeout time.Duration

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

var _ events.Sink = (*Publisher)(nil)

func New(br broker.Broker, cfg Config) (*Publisher, error) {
	if br == nil {
		return nil, errors.New("publisher: broker is nil")
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Publisher{
		br:             br,
		log:            cfg.Logger.With().Str("component", "publisher").Logger(),
		queue:          make(chan events.Event, size),
		publishTimeout: timeout,
	}, nil
}

func (p *Publisher) Emit(e events.Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	select {
	case p.queue <- e:
	default:
		n := p.dropped.Add(1)
		p.log.Warn().Str("kind", e.Kind).Uint64("dropped", n).Msg("event queue full, dropping event")
	}
}

// Run publishes queued events until ctx is done, then flushes whatever is
// still queued with a bounded deadline.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush(context.WithoutCancel(ctx))
			return ctx.Err()
		case e := <-p.queue:
			p.publishLogged(ctx, e)
		}
	}
}

func (p *Publisher) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()
	for {
		select {
		case e := <-p.queue:
			p.publishLogged(ctx, e)
		default:
			return
		}
	}
}

func (p *Publisher) publishLogged(ctx context.Context, e events.Event) {
	if err := p.publishOne(ctx, e); err != nil {
		p.failed.Add(1)
		p.log.Error().Err(err).Str("kind", e.Kind).Str("request_id", e.RequestID).Msg("publish event")
		return
	}
	p.published.Add(1)
}

func (p *Publisher) publishOne(ctx context.Context, e events.Event) error {
	value, err := encode(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	return p.br.Publish(ctx, broker.Message{
		Key:   e.Key(),
		Kind:  e.Kind,
		Value: value,
	})
}

func encode(e events.Event) ([]byte, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("publisher: marshal payload: %w", err)
	}
	env := broker.Envelope{
		Version:    envelopeVersion,
		Kind:       e.Kind,
		Network:    e.Network,
		RequestID:  e.RequestID,
		OccurredAt: e.OccurredAt,
		Payload:    payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("publisher: marshal envelope: %w", err)
	}
	return value, nil
}

type Stats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
	Queued    int    `json:"queued"`
}

func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
		Queued:    len(p.queue),
	}
}
