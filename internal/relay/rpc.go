package relay

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

const (
	methodSignTransaction        = "signTransaction"
	methodSignAndSendTransaction = "signAndSendTransaction"
	methodGetPayerSigner         = "getPayerSigner"
)

type transactionParams struct {
	Transaction string `json:"transaction"`
}

type signResult struct {
	Signature         string `json:"signature"`
	SignedTransaction string `json:"signed_transaction"`
}

type payerSignerResult struct {
	SignerAddress  string `json:"signer_address"`
	PaymentAddress string `json:"payment_address"`
}

// RPCClient is the live relay client speaking JSON-RPC 2.0 over HTTP.
type RPCClient struct {
	rpc     jsonrpc.RPCClient
	timeout time.Duration
}

var _ Client = (*RPCClient)(nil)

func NewRPCClient(endpoint, apiKey string, timeout time.Duration) *RPCClient {
	headers := map[string]string{}
	if apiKey = strings.TrimSpace(apiKey); apiKey != "" {
		headers["x-api-key"] = apiKey
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RPCClient{
		rpc: jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 100,
					IdleConnTimeout:     90 * time.Second,
				},
			},
			CustomHeaders: headers,
		}),
		timeout: timeout,
	}
}

func (c *RPCClient) Sign(ctx context.Context, encodedTx string) (string, error) {
	var out signResult
	if err := c.call(ctx, methodSignTransaction, transactionParams{Transaction: encodedTx}, &out); err != nil {
		return "", err
	}
	if out.Signature == "" {
		return "", rejected(methodSignTransaction, "empty signature in relay response")
	}
	return out.Signature, nil
}

func (c *RPCClient) SignAndSend(ctx context.Context, encodedTx string) (string, error) {
	var out signResult
	if err := c.call(ctx, methodSignAndSendTransaction, transactionParams{Transaction: encodedTx}, &out); err != nil {
		return "", err
	}
	if out.Signature == "" {
		return "", rejected(methodSignAndSendTransaction, "empty signature in relay response")
	}
	return out.Signature, nil
}

func (c *RPCClient) FeePayerAddress(ctx context.Context) (string, error) {
	var out payerSignerResult
	if err := c.call(ctx, methodGetPayerSigner, nil, &out); err != nil {
		return "", err
	}
	if out.SignerAddress == "" {
		return "", rejected(methodGetPayerSigner, "empty signer address in relay response")
	}
	return out.SignerAddress, nil
}

// call sends params as the by-name params object. A nil params omits the field.
func (c *RPCClient) call(ctx context.Context, method string, params any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var req *jsonrpc.RPCRequest
	if params != nil {
		req = jsonrpc.NewRequest(method, params)
	} else {
		req = jsonrpc.NewRequest(method)
	}

	resp, err := c.rpc.CallRaw(ctx, req)
	if resp != nil && resp.Error != nil {
		return rejected(method, resp.Error.Message)
	}
	if err != nil {
		return unavailable(method, err)
	}
	if err := resp.GetObject(out); err != nil {
		return unavailable(method, fmt.Errorf("decode result: %w", err))
	}
	return nil
}
