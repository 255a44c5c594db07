//go:build !nats

package broker

import (
	"context"
	"errors"
)

func openNATS(context.Context, Config) (Broker, error) {
	return nil, errors.New("broker: nats adapter is not built; rebuild with -tags=nats")
}
