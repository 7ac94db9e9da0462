// Package rpc is a small Ethereum JSON-RPC client.
package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"YieldScope/internal/domain/models"
	xhttp "YieldScope/pkg/http"

	"github.com/sony/gobreaker"
)

// Error is an error object returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// Client calls one node over HTTP. Transport failures trip a circuit
// breaker; errors reported by the node do not.
type Client struct {
	url     string
	http    *xhttp.Client
	breaker *gobreaker.CircuitBreaker
	nextID  atomic.Uint64
}

// Option configures a Client.
type Option func(*options)

type options struct {
	name        string
	timeout     time.Duration
	maxFailures uint32
	openTimeout time.Duration
	onState     func(name string, from, to gobreaker.State)
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBreaker sets how many consecutive transport failures open the
// breaker and how long it stays open.
func WithBreaker(name string, maxFailures uint32, openTimeout time.Duration) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
		if maxFailures > 0 {
			o.maxFailures = maxFailures
		}
		if openTimeout > 0 {
			o.openTimeout = openTimeout
		}
	}
}

// WithStateChange registers a breaker state callback.
func WithStateChange(fn func(name string, from, to gobreaker.State)) Option {
	return func(o *options) { o.onState = fn }
}

// New returns a JSON-RPC client for url. No connection is made until the first call.
func New(url string, opts ...Option) *Client {
	o := &options{name: "rpc", timeout: 10 * time.Second, maxFailures: 3, openTimeout: 30 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	st := gobreaker.Settings{
		Name:    o.name,
		Timeout: o.openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= o.maxFailures
		},
		IsSuccessful: func(err error) bool {
			var rpcErr *Error
			return err == nil || errors.As(err, &rpcErr)
		},
		OnStateChange: o.onState,
	}
	return &Client{
		url:     url,
		http:    xhttp.NewClient(xhttp.WithTimeout(o.timeout)),
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// Call invokes method and decodes the result into result, which may be nil.
func (c *Client) Call(ctx context.Context, method string, result any, params ...any) error {
	if params == nil {
		params = []any{}
	}
	req := request{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}

	_, err := c.breaker.Execute(func() (any, error) {
		var resp response
		if err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    c.url,
			Body:   req,
		}, &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		if result == nil {
			return nil, nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return nil, fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var s string
	if err := c.Call(ctx, "eth_blockNumber", &s); err != nil {
		return 0, err
	}
	return ParseQuantity(s)
}

type rawHeader struct {
	Number    string `json:"number"`
	Timestamp string `json:"timestamp"`
}

func (h *rawHeader) block(chain string) (*models.Block, error) {
	n, err := ParseQuantity(h.Number)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	ts, err := ParseQuantity(h.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("block timestamp: %w", err)
	}
	return &models.Block{Chain: chain, Number: n, Timestamp: int64(ts)}, nil
}

// HeaderByNumber fetches the header of block n.
func (c *Client) HeaderByNumber(ctx context.Context, chain string, n uint64) (*models.Block, error) {
	var h *rawHeader
	if err := c.Call(ctx, "eth_getBlockByNumber", &h, EncodeQuantity(n), false); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("block %d not found", n)
	}
	return h.block(chain)
}

// CallContract runs a read-only call against to at the given block.
func (c *Client) CallContract(ctx context.Context, to string, data []byte, block uint64) ([]byte, error) {
	tag := "latest"
	if block > 0 {
		tag = EncodeQuantity(block)
	}
	var out string
	msg := map[string]string{"to": to, "data": EncodeBytes(data)}
	if err := c.Call(ctx, "eth_call", &out, msg, tag); err != nil {
		return nil, err
	}
	return DecodeBytes(out)
}

// ParseQuantity decodes a 0x-prefixed hex quantity.
func ParseQuantity(s string) (uint64, error) {
	if !strings.HasPrefix(s, "0x") || len(s) < 3 {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return strconv.ParseUint(s[2:], 16, 64)
}

func EncodeQuantity(n uint64) string { return "0x" + strconv.FormatUint(n, 16) }

func EncodeBytes(b []byte) string { return "0x" + hex.EncodeToString(b) }

func DecodeBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}
