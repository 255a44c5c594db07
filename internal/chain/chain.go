// Package chain holds the blockchain RPC connection. The facilitator does no
// on-chain verification; the connection only backs the deep health probe.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

const defaultProbeTimeout = 3 * time.Second

// Prober reports whether the blockchain RPC endpoint is usable.
type Prober interface {
	Probe(ctx context.Context) error
}

type Client struct {
	endpoint string
	rpc      *rpc.Client
	timeout  time.Duration
}

func New(endpoint string) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("chain: rpc url is required")
	}
	return &Client{
		endpoint: endpoint,
		rpc:      rpc.New(endpoint),
		timeout:  defaultProbeTimeout,
	}, nil
}

func (c *Client) Endpoint() string { return c.endpoint }

// Probe calls getHealth, which returns "ok" on a node that is caught up.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("chain: getHealth: %w", err)
	}
	if status != rpc.HealthOk {
		return fmt.Errorf("chain: node unhealthy: %s", status)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.rpc == nil {
		return nil
	}
	return c.rpc.Close()
}
