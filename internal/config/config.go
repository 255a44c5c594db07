package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultNetwork  = "solana-devnet"
	DefaultUSDCMint = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
)

type Config struct {
	ListenAddr string

	RelayURL     string
	RelayAPIKey  string
	RelayTimeout time.Duration

	SolanaRPCURL string
	Network      string
	USDCMint     string

	MockMode     bool
	MockFeePayer string

	MaxBodyBytes int64
	CORSOrigins  []string

	LogLevel  string
	LogFormat string

	BrokerDriver   string
	BrokerURL      string
	BrokerTopic    string
	EventQueueSize int
}

func FromFlags() (Config, error) {
	return FromArgs(os.Args[1:], os.Getenv)
}

// FromArgs parses command line arguments; environment variables supply the defaults.
func FromArgs(args []string, lookup func(string) string) (Config, error) {
	env := envReader(lookup)
	fs := flag.NewFlagSet("relay-facilitator", flag.ContinueOnError)

	var cfg Config
	var port string
	var origins string

	fs.StringVar(&port, "port", env.getenv("PORT", "3000"), "HTTP listen port")
	fs.StringVar(&cfg.ListenAddr, "listen", env.getenv("FACILITATOR_LISTEN", ""), "HTTP listen address (overrides -port)")

	fs.StringVar(&cfg.RelayURL, "relay-url", env.getenv("KORA_RPC_URL", "http://localhost:8080"), "Relay JSON-RPC endpoint")
	fs.StringVar(&cfg.RelayAPIKey, "relay-api-key", env.getenv("KORA_API_KEY", ""), "Relay API key (optional)")
	fs.DurationVar(&cfg.RelayTimeout, "relay-timeout", env.getenvDuration("RELAY_TIMEOUT", 15*time.Second), "Timeout applied to every relay call")

	fs.StringVar(&cfg.SolanaRPCURL, "solana-rpc-url", env.getenv("SOLANA_RPC_URL", "https://api.devnet.solana.com"), "Solana RPC endpoint")
	fs.StringVar(&cfg.Network, "network", env.getenv("NETWORK", DefaultNetwork), "Network identifier advertised to clients")
	fs.StringVar(&cfg.USDCMint, "usdc-mint", env.getenv("USDC_MINT", DefaultUSDCMint), "Mint address of the settlement token")

	fs.BoolVar(&cfg.MockMode, "mock", env.getenvBool("MOCK_MODE", false), "Simulate relay calls locally")
	fs.StringVar(&cfg.MockFeePayer, "mock-fee-payer", env.getenv("MOCK_FEE_PAYER", ""), "Fee payer address reported in mock mode")

	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", env.getenvInt64("MAX_BODY_BYTES", 10<<20), "Maximum accepted request body size")
	fs.StringVar(&origins, "cors-origins", env.getenv("CORS_ORIGINS", "*"), "Comma-separated list of allowed CORS origins")

	fs.StringVar(&cfg.LogLevel, "log-level", env.getenv("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", env.getenv("LOG_FORMAT", "json"), "Log format (json, pretty)")

	fs.StringVar(&cfg.BrokerDriver, "broker-driver", env.getenv("BROKER_DRIVER", "none"), "Event broker driver (none, kafka, nats, rabbitmq)")
	fs.StringVar(&cfg.BrokerURL, "broker-url", env.getenv("BROKER_URL", ""), "Event broker URL/DSN")
	fs.StringVar(&cfg.BrokerTopic, "broker-topic", env.getenv("BROKER_TOPIC", "facilitator.payments"), "Event broker topic/subject/queue name")
	fs.IntVar(&cfg.EventQueueSize, "event-queue-size", env.getenvInt("EVENT_QUEUE_SIZE", 256), "Buffered outcome events awaiting publication")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":" + strings.TrimPrefix(port, ":")
	}
	cfg.CORSOrigins = splitCommaList(origins)
	cfg.Network = strings.TrimSpace(cfg.Network)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Network == "" {
		return errors.New("config: network is required")
	}
	if c.USDCMint == "" {
		return errors.New("config: usdc mint is required")
	}
	if !c.MockMode && strings.TrimSpace(c.RelayURL) == "" {
		return errors.New("config: relay url is required unless mock mode is enabled")
	}
	if c.RelayTimeout <= 0 {
		return errors.New("config: relay timeout must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("config: max body bytes must be positive")
	}
	return nil
}

type envReader func(string) string

func (e envReader) getenv(key, def string) string {
	if v := e(key); v != "" {
		return v
	}
	return def
}

func (e envReader) getenvBool(key string, def bool) bool {
	if v := e(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (e envReader) getenvDuration(key string, def time.Duration) time.Duration {
	if v := e(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func (e envReader) getenvInt64(key string, def int64) int64 {
	if v := e(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func (e envReader) getenvInt(key string, def int) int {
	if v := e(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
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
