package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fakeNode(t *testing.T, reply func(id json.RawMessage) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Method != "getHealth" {
			http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply(req.ID)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_RequiresEndpoint(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error")
	}
}

func TestProbe_Healthy(t *testing.T) {
	srv := fakeNode(t, func(id json.RawMessage) string {
		return `{"jsonrpc":"2.0","id":` + string(id) + `,"result":"ok"}`
	})

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if c.Endpoint() != srv.URL {
		t.Fatalf("endpoint=%q", c.Endpoint())
	}
}

func TestProbe_NodeBehind(t *testing.T) {
	srv := fakeNode(t, func(id json.RawMessage) string {
		return `{"jsonrpc":"2.0","id":` + string(id) + `,"error":{"code":-32005,"message":"Node is behind by 42 slots"}}`
	})

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	err = c.Probe(context.Background())
	if err == nil || !strings.Contains(err.Error(), "chain: getHealth") {
		t.Fatalf("err=%v", err)
	}
}

func TestProbe_Unreachable(t *testing.T) {
	c, err := New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Probe(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
