// Package facilitator implements the verify, settle and supported actions of
// the payment protocol and maps every outcome to a stable response body.
//
// The facilitator is stateless per request. It never inspects the transaction
// beyond sniffing its wire format; the relay is the validation oracle.
package facilitator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Abdullah1738/relay-facilitator/internal/chain"
	"github.com/Abdullah1738/relay-facilitator/internal/config"
	"github.com/Abdullah1738/relay-facilitator/internal/events"
	"github.com/Abdullah1738/relay-facilitator/internal/payment"
	"github.com/Abdullah1738/relay-facilitator/internal/relay"
	"github.com/Abdullah1738/relay-facilitator/internal/txdecode"
)

const (
	ProtocolVersion = "1.0"
	PaymentScheme   = "exact"
	ServiceName     = "relay-facilitator"

	// UnknownFeePayer is advertised when the relay cannot report its fee payer.
	UnknownFeePayer = "unknown"

	explorerBaseURL = "https://explorer.solana.com/tx/"

	msgValidationFailed = "Transaction validation failed"
	msgSettlementFailed = "Settlement failed"
)

type Options struct {
	Config config.Config
	Relay  relay.Client
	// Chain backs the deep health probe; nil disables it.
	Chain  chain.Prober
	Events events.Sink
	Logger zerolog.Logger
	Now    func() time.Time
}

type Facilitator struct {
	cfg    config.Config
	relay  relay.Client
	chain  chain.Prober
	events events.Sink
	log    zerolog.Logger
	now    func() time.Time
}

func New(opts Options) (*Facilitator, error) {
	if opts.Relay == nil {
		return nil, errors.New("facilitator: relay client is nil")
	}
	if opts.Events == nil {
		opts.Events = events.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Facilitator{
		cfg:    opts.Config,
		relay:  opts.Relay,
		chain:  opts.Chain,
		events: opts.Events,
		log:    opts.Logger.With().Str("component", "facilitator").Logger(),
		now:    opts.Now,
	}, nil
}

type VerifyResponse struct {
	Status int `json:"-"`

	IsValid   bool   `json:"isValid"`
	Network   string `json:"network,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Parsed    *bool  `json:"parsed,omitempty"`
	Error     string `json:"error,omitempty"`
	Details   string `json:"details,omitempty"`
}

// Verify validates a payment without broadcasting it.
func (f *Facilitator) Verify(ctx context.Context, p payment.Payload) VerifyResponse {
	log := f.logger(ctx)
	network := f.network(p)

	if err := payment.ValidateVerify(p); err != nil {
		reason := validationMessage(err)
		log.Info().Str("reason", reason).Msg("verify rejected")
		f.emit(ctx, events.KindPaymentRejected, network, events.PaymentRejectedPayload{
			Network: network,
			Stage:   events.StageValidation,
			Reason:  reason,
		})
		return VerifyResponse{Status: http.StatusBadRequest, Error: reason}
	}

	format := txdecode.Decode(p.Transaction)
	log.Debug().Stringer("format", format).Msg("transaction decoded")

	if _, err := f.relay.Sign(ctx, p.Transaction); err != nil {
		log.Warn().Err(err).Stringer("format", format).Msg("relay rejected verify")
		f.emit(ctx, events.KindPaymentRejected, network, events.PaymentRejectedPayload{
			Network: network,
			Stage:   events.StageRelay,
			Reason:  relayMessage(err),
			Format:  format.String(),
		})
		resp := VerifyResponse{Status: http.StatusBadRequest, Error: msgValidationFailed}
		if f.cfg.MockMode {
			resp.Details = relayMessage(err)
		}
		return resp
	}

	parsed := format.Parsed()
	f.emit(ctx, events.KindPaymentVerified, network, events.PaymentVerifiedPayload{
		Network:   network,
		Amount:    p.Metadata.Amount,
		Recipient: p.Metadata.Recipient,
		Endpoint:  p.Metadata.Endpoint,
		Format:    format.String(),
		Parsed:    parsed,
	})
	return VerifyResponse{
		Status:    http.StatusOK,
		IsValid:   true,
		Network:   network,
		Amount:    p.Metadata.Amount,
		Recipient: p.Metadata.Recipient,
		Parsed:    &parsed,
	}
}

type SettleResponse struct {
	Status int `json:"-"`

	Success     bool   `json:"success"`
	Signature   string `json:"signature,omitempty"`
	Network     string `json:"network,omitempty"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Settle co-signs and broadcasts the payment through the relay. There are no
// retries: a failed broadcast is reported to the caller as is.
func (f *Facilitator) Settle(ctx context.Context, p payment.Payload) SettleResponse {
	log := f.logger(ctx)
	network := f.network(p)

	if err := payment.ValidateSettle(p); err != nil {
		reason := validationMessage(err)
		f.emit(ctx, events.KindSettlementFailed, network, events.SettlementFailedPayload{
			Network: network,
			Stage:   events.StageValidation,
			Reason:  reason,
		})
		return SettleResponse{Status: http.StatusBadRequest, Error: reason}
	}

	sig, err := f.relay.SignAndSend(ctx, p.Transaction)
	if err != nil {
		log.Error().Err(err).Msg("settlement failed")
		f.emit(ctx, events.KindSettlementFailed, network, events.SettlementFailedPayload{
			Network: network,
			Stage:   events.StageRelay,
			Reason:  relayMessage(err),
		})
		return SettleResponse{
			Status:  http.StatusInternalServerError,
			Error:   msgSettlementFailed,
			Message: relayMessage(err),
		}
	}

	explorer := ExplorerURL(sig, network)
	log.Info().Str("signature", sig).Msg("payment settled")
	f.emit(ctx, events.KindPaymentSettled, network, events.PaymentSettledPayload{
		Network:     network,
		Signature:   sig,
		ExplorerURL: explorer,
	})
	return SettleResponse{
		Status:      http.StatusOK,
		Success:     true,
		Signature:   sig,
		Network:     network,
		ExplorerURL: explorer,
	}
}

// ExplorerURL links a signature on the public explorer. The cluster is the
// network name without its "solana-" prefix.
func ExplorerURL(signature, network string) string {
	return explorerBaseURL + signature + "?cluster=" + strings.TrimPrefix(network, "solana-")
}

type Token struct {
	Mint     string `json:"mint"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type Endpoints struct {
	Verify string `json:"verify"`
	Settle string `json:"settle"`
}

type Capabilities struct {
	Version       string    `json:"version"`
	Network       string    `json:"network"`
	PaymentScheme string    `json:"paymentScheme"`
	FeePayer      string    `json:"feePayer"`
	Tokens        []Token   `json:"tokens"`
	Endpoints     Endpoints `json:"endpoints"`
}

// Supported always succeeds; a relay failure only degrades the fee payer.
func (f *Facilitator) Supported(ctx context.Context) Capabilities {
	return Capabilities{
		Version:       ProtocolVersion,
		Network:       f.cfg.Network,
		PaymentScheme: PaymentScheme,
		FeePayer:      f.feePayer(ctx),
		Tokens: []Token{
			{Mint: f.cfg.USDCMint, Symbol: "USDC", Decimals: 6},
		},
		Endpoints: Endpoints{Verify: "/verify", Settle: "/settle"},
	}
}

func (f *Facilitator) feePayer(ctx context.Context) string {
	if f.cfg.MockMode {
		if f.cfg.MockFeePayer != "" {
			return f.cfg.MockFeePayer
		}
		return relay.MockFeePayer
	}
	addr, err := f.relay.FeePayerAddress(ctx)
	if err != nil || addr == "" {
		f.logger(ctx).Warn().Err(err).Msg("fee payer lookup failed")
		return UnknownFeePayer
	}
	return addr
}

type HealthStatus struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	MockMode bool   `json:"mockMode"`
	Network  string `json:"network"`
	RPC      string `json:"rpc,omitempty"`
}

// Health reports liveness. With deep set, the blockchain RPC is probed and
// its state reported in RPC; Status stays "ok" either way.
func (f *Facilitator) Health(ctx context.Context, deep bool) HealthStatus {
	h := HealthStatus{
		Status:   "ok",
		Service:  ServiceName,
		MockMode: f.cfg.MockMode,
		Network:  f.cfg.Network,
	}
	if !deep {
		return h
	}
	if f.chain == nil {
		h.RPC = "disabled"
		return h
	}
	h.RPC = "ok"
	if err := f.chain.Probe(ctx); err != nil {
		h.RPC = err.Error()
	}
	return h
}

func (f *Facilitator) network(p payment.Payload) string {
	if n := strings.TrimSpace(p.Network); n != "" {
		return n
	}
	return f.cfg.Network
}

func (f *Facilitator) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &f.log
}

func (f *Facilitator) emit(ctx context.Context, kind, network string, payload any) {
	e := events.Event{
		Kind:       kind,
		Network:    network,
		OccurredAt: f.now().UTC(),
		Payload:    payload,
	}
	if id, ok := hlog.IDFromCtx(ctx); ok {
		e.RequestID = id.String()
	}
	f.events.Emit(e)
}

func validationMessage(err error) string {
	var verr *payment.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

func relayMessage(err error) string {
	var rerr *relay.Error
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return err.Error()
}
