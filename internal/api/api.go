package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Abdullah1738/relay-facilitator/internal/facilitator"
	"github.com/Abdullah1738/relay-facilitator/internal/payment"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultMaxBodyBytes = 10 << 20

	msgInvalidBody   = "Invalid request body"
	msgBodyTooLarge  = "Request body too large"
	msgInternalError = "Internal server error"
)

type Server struct {
	fac *facilitator.Facilitator
	log zerolog.Logger

	maxBodyBytes int64
	corsOrigins  []string
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithCORSOrigins restricts cross-origin callers; an empty list allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

func New(fac *facilitator.Facilitator, opts ...Option) (*Server, error) {
	if fac == nil {
		return nil, errors.New("api: facilitator is nil")
	}
	s := &Server{
		fac:          fac,
		log:          zerolog.Nop(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(recoverJSON)
	r.Use(cors.Handler(s.corsOptions()))
	r.Use(middleware.RequestSize(s.maxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	})

	r.Post("/verify", s.handleVerify)
	r.Post("/settle", s.handleSettle)
	r.Get("/supported", s.handleSupported)
	r.Get("/health", s.handleHealth)
	r.Post("/payment", s.handleDirectPayment)
	return r
}

func (s *Server) corsOptions() cors.Options {
	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var p payment.Payload
	if status, msg, ok := decodeBody(r, &p); !ok {
		writeJSON(w, status, facilitator.VerifyResponse{Error: msg})
		return
	}
	resp := s.fac.Verify(r.Context(), p)
	writeJSON(w, resp.Status, resp)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var p payment.Payload
	if status, msg, ok := decodeBody(r, &p); !ok {
		writeJSON(w, status, facilitator.SettleResponse{Error: msg})
		return
	}
	resp := s.fac.Settle(r.Context(), p)
	writeJSON(w, resp.Status, resp)
}

func (s *Server) handleSupported(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fac.Supported(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	deep, _ := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get("deep")))
	writeJSON(w, http.StatusOK, s.fac.Health(r.Context(), deep))
}

func (s *Server) handleDirectPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.DirectPayment
	if status, msg, ok := decodeBody(r, &req); !ok {
		writeJSON(w, status, facilitator.DirectPaymentResponse{Error: msg})
		return
	}
	resp, err := s.fac.DirectPayment(r.Context(), req)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("direct payment")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError, Message: err.Error()})
		return
	}
	writeJSON(w, resp.Status, resp)
}

// decodeBody treats an empty body as an empty object so that missing fields
// surface as validation errors rather than as a malformed request.
func decodeBody(r *http.Request, v any) (int, string, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, msgBodyTooLarge, false
		}
		return http.StatusBadRequest, msgInvalidBody, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return 0, "", true
	}
	if err := json.Unmarshal(body, v); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("decode request body")
		return http.StatusBadRequest, msgInvalidBody, false
	}
	return 0, "", true
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
