//go:build docker

package containers

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultNATSImage     = "nats:2.10-alpine"
	defaultRabbitMQImage = "rabbitmq:3.13-management-alpine"
	defaultKafkaImage    = "redpandadata/redpanda:v23.3.17"
)

// Broker is a running message broker container reachable from the host.
type Broker struct {
	Driver string
	URL    string

	c testcontainers.Container
}

// StartBroker starts a container for driver ("nats", "rabbitmq" or "kafka").
// URL is in the form broker.Open expects for that driver.
func StartBroker(ctx context.Context, driver string) (*Broker, error) {
	var (
		c   testcontainers.Container
		url string
		err error
	)
	switch driver {
	case "nats":
		c, url, err = startNATS(ctx)
	case "rabbitmq":
		c, url, err = startRabbitMQ(ctx)
	case "kafka":
		c, url, err = startKafka(ctx)
	default:
		return nil, fmt.Errorf("containers: unsupported broker %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", driver, err)
	}
	return &Broker{Driver: driver, URL: url, c: c}, nil
}

func (b *Broker) Terminate(ctx context.Context) error {
	if b == nil || b.c == nil {
		return nil
	}
	return b.c.Terminate(ctx)
}

func startNATS(ctx context.Context) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image:        defaultNATSImage,
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForListeningPort(nat.Port("4222/tcp")).WithStartupTimeout(30 * time.Second),
	}
	c, err := start(ctx, req)
	if err != nil {
		return nil, "", err
	}
	host, port, err := endpoint(ctx, c, "4222/tcp")
	if err != nil {
		return nil, "", err
	}
	return c, fmt.Sprintf("nats://%s:%s", host, port), nil
}

func startRabbitMQ(ctx context.Context) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image:        defaultRabbitMQImage,
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForListeningPort(nat.Port("5672/tcp")).WithStartupTimeout(60 * time.Second),
	}
	c, err := start(ctx, req)
	if err != nil {
		return nil, "", err
	}
	host, port, err := endpoint(ctx, c, "5672/tcp")
	if err != nil {
		return nil, "", err
	}
	return c, fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port), nil
}

// Redpanda advertises a fixed host port so the kafka client can reconnect
// to the address returned in metadata.
func startKafka(ctx context.Context) (testcontainers.Container, string, error) {
	hostPort, err := freePort()
	if err != nil {
		return nil, "", err
	}

	req := testcontainers.ContainerRequest{
		Image:        defaultKafkaImage,
		ExposedPorts: []string{"9092/tcp"},
		Cmd: []string{
			"redpanda",
			"start",
			"--overprovisioned",
			"--node-id=0",
			"--check=false",
			"--smp=1",
			"--memory=1G",
			"--reserve-memory=0M",
			"--kafka-addr=PLAINTEXT://0.0.0.0:9092",
			fmt.Sprintf("--advertise-kafka-addr=PLAINTEXT://127.0.0.1:%d", hostPort),
		},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = nat.PortMap{
				nat.Port("9092/tcp"): []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: strconv.Itoa(hostPort)}},
			}
		},
		WaitingFor: wait.ForListeningPort(nat.Port("9092/tcp")).WithStartupTimeout(120 * time.Second),
	}
	c, err := start(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return c, fmt.Sprintf("127.0.0.1:%d", hostPort), nil
}

func start(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, error) {
	if os.Getenv("FACILITATOR_TEST_LOG") != "" {
		req.LogConsumerCfg = &testcontainers.LogConsumerConfig{
			Consumers: []testcontainers.LogConsumer{&testcontainers.StdoutLogConsumer{}},
		}
	}
	return testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
}

func endpoint(ctx context.Context, c testcontainers.Container, port string) (string, string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return "", "", err
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		_ = c.Terminate(ctx)
		return "", "", err
	}
	return host, mapped.Port(), nil
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
