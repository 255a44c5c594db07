package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Message struct {
	Key   string
	Kind  string
	Value []byte
}

type Broker interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

type Config struct {
	Driver   string
	URL      string
	Topic    string
	ClientID string
}

// Open returns a nil Broker for the "none" driver.
func Open(ctx context.Context, cfg Config) (Broker, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "none":
		return nil, nil
	}

	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("broker: url is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("broker: topic is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "relay-facilitator"
	}

	switch driver {
	case "kafka":
		return openKafka(cfg)
	case "nats":
		return openNATS(ctx, cfg)
	case "rabbitmq":
		return openRabbitMQ(cfg)
	default:
		return nil, fmt.Errorf("broker: unsupported driver %q", cfg.Driver)
	}
}

func splitCommaList(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
