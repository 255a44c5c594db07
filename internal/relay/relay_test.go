package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abdullah1738/relay-facilitator/internal/config"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// fakeRelay answers JSON-RPC calls with handle's result or error object.
func fakeRelay(t *testing.T, handle func(req rpcRequest, r *http.Request) (any, *rpcErrorBody)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		result, rpcErr := handle(req, r)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func TestRPCClient_Sign(t *testing.T) {
	srv := fakeRelay(t, func(req rpcRequest, r *http.Request) (any, *rpcErrorBody) {
		if req.Method != methodSignTransaction {
			t.Errorf("method=%q want %q", req.Method, methodSignTransaction)
		}
		var params transactionParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			t.Errorf("params=%s is not an object: %v", string(req.Params), err)
		}
		if params.Transaction != "dHg=" {
			t.Errorf("params.transaction=%q want %q", params.Transaction, "dHg=")
		}
		if got := r.Header.Get("x-api-key"); got != "secret" {
			t.Errorf("x-api-key=%q want %q", got, "secret")
		}
		return signResult{Signature: "sig-1", SignedTransaction: "c2lnbmVk"}, nil
	})
	defer srv.Close()

	c := NewRPCClient(srv.URL, "secret", time.Second)
	sig, err := c.Sign(context.Background(), "dHg=")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if sig != "sig-1" {
		t.Fatalf("signature=%q want %q", sig, "sig-1")
	}
}

func TestRPCClient_SignAndSend(t *testing.T) {
	srv := fakeRelay(t, func(req rpcRequest, r *http.Request) (any, *rpcErrorBody) {
		if req.Method != methodSignAndSendTransaction {
			t.Errorf("method=%q want %q", req.Method, methodSignAndSendTransaction)
		}
		if r.Header.Get("x-api-key") != "" {
			t.Errorf("unexpected api key header")
		}
		var params transactionParams
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Transaction != "dHg=" {
			t.Errorf("params=%s err=%v", string(req.Params), err)
		}
		return signResult{Signature: "5ettled"}, nil
	})
	defer srv.Close()

	c := NewRPCClient(srv.URL, "", time.Second)
	sig, err := c.SignAndSend(context.Background(), "dHg=")
	if err != nil {
		t.Fatalf("SignAndSend: %v", err)
	}
	if sig != "5ettled" {
		t.Fatalf("signature=%q", sig)
	}
}

func TestRPCClient_Rejection(t *testing.T) {
	srv := fakeRelay(t, func(req rpcRequest, r *http.Request) (any, *rpcErrorBody) {
		return nil, &rpcErrorBody{Code: -32602, Message: "insufficient funds"}
	})
	defer srv.Close()

	c := NewRPCClient(srv.URL, "", time.Second)
	_, err := c.Sign(context.Background(), "dHg=")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Fatalf("rejection must not be classified as unavailable")
	}
	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if re.Op != methodSignTransaction || re.Message != "insufficient funds" {
		t.Fatalf("unexpected error: %+v", re)
	}
}

func TestRPCClient_EmptySignatureIsRejection(t *testing.T) {
	srv := fakeRelay(t, func(req rpcRequest, r *http.Request) (any, *rpcErrorBody) {
		return map[string]any{}, nil
	})
	defer srv.Close()

	c := NewRPCClient(srv.URL, "", time.Second)
	if _, err := c.SignAndSend(context.Background(), "dHg="); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestRPCClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL, "", 50*time.Millisecond)
	start := time.Now()
	_, err := c.Sign(context.Background(), "dHg=")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout was not applied")
	}
}

func TestRPCClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewRPCClient(url, "", time.Second)
	if _, err := c.FeePayerAddress(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRPCClient_FeePayerAddress(t *testing.T) {
	var calls atomic.Int32
	srv := fakeRelay(t, func(req rpcRequest, r *http.Request) (any, *rpcErrorBody) {
		calls.Add(1)
		if req.Method != methodGetPayerSigner {
			t.Errorf("method=%q", req.Method)
		}
		if len(req.Params) != 0 && string(req.Params) != "null" {
			t.Errorf("params=%s want none", string(req.Params))
		}
		return payerSignerResult{SignerAddress: "Payer111", PaymentAddress: "Pay222"}, nil
	})
	defer srv.Close()

	c := NewRPCClient(srv.URL, "", time.Second)
	addr, err := c.FeePayerAddress(context.Background())
	if err != nil {
		t.Fatalf("FeePayerAddress: %v", err)
	}
	if addr != "Payer111" {
		t.Fatalf("address=%q", addr)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one call, got %d", calls.Load())
	}
}

func TestMock_DistinctSignatures(t *testing.T) {
	m := NewMock("")
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		sig, err := m.SignAndSend(ctx, "anything")
		if err != nil {
			t.Fatalf("SignAndSend: %v", err)
		}
		if sig == "" || seen[sig] {
			t.Fatalf("signature %q empty or repeated", sig)
		}
		seen[sig] = true
	}

	if addr, _ := m.FeePayerAddress(ctx); addr != MockFeePayer {
		t.Fatalf("fee payer=%q want placeholder", addr)
	}
	if addr, _ := NewMock("Override1").FeePayerAddress(ctx); addr != "Override1" {
		t.Fatalf("fee payer=%q want override", addr)
	}
}

func TestMock_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMock("").Sign(ctx, "tx"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNew_SelectsByConfig(t *testing.T) {
	if _, ok := New(config.Config{MockMode: true}).(*Mock); !ok {
		t.Fatalf("expected mock client in mock mode")
	}
	if _, ok := New(config.Config{RelayURL: "http://relay", RelayTimeout: time.Second}).(*RPCClient); !ok {
		t.Fatalf("expected rpc client in live mode")
	}
}
