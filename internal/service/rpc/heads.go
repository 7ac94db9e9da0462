package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// HeadSource delivers new block headers of one chain, either from a
// websocket newHeads subscription or by polling the HTTP endpoint.
type HeadSource struct {
	chain          string
	client         *Client
	wsURL          string
	pollInterval   time.Duration
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// HeadOption configures a HeadSource.
type HeadOption func(*HeadSource)

// WithWebsocket subscribes over url instead of polling.
func WithWebsocket(url string) HeadOption {
	return func(h *HeadSource) { h.wsURL = url }
}

func WithPollInterval(d time.Duration) HeadOption {
	return func(h *HeadSource) {
		if d > 0 {
			h.pollInterval = d
		}
	}
}

func WithReconnect(delay, ping time.Duration) HeadOption {
	return func(h *HeadSource) {
		if delay > 0 {
			h.reconnectDelay = delay
		}
		if ping > 0 {
			h.pingInterval = ping
		}
	}
}

// NewHeadSource follows the chain head through client, or a websocket when one is configured.
func NewHeadSource(chain string, client *Client, opts ...HeadOption) *HeadSource {
	h := &HeadSource{
		chain:          chain,
		client:         client,
		pollInterval:   4 * time.Second,
		reconnectDelay: 5 * time.Second,
		pingInterval:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HeadSource) BlockNumber(ctx context.Context) (uint64, error) {
	return h.client.BlockNumber(ctx)
}

// Heads streams headers until ctx is done. Both channels are closed on exit.
func (h *HeadSource) Heads(ctx context.Context) (<-chan *models.Block, <-chan error) {
	heads := make(chan *models.Block, 16)
	errs := make(chan error, 4)
	go func() {
		defer close(heads)
		defer close(errs)
		if h.wsURL != "" {
			h.subscribeLoop(ctx, heads, errs)
			return
		}
		h.pollLoop(ctx, heads, errs)
	}()
	return heads, errs
}

func (h *HeadSource) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != nil {
		err := h.conn.Close()
		h.conn = nil
		return err
	}
	return nil
}

func (h *HeadSource) pollLoop(ctx context.Context, heads chan<- *models.Block, errs chan<- error) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()
	var last uint64
	for {
		n, err := h.client.BlockNumber(ctx)
		switch {
		case err != nil:
			sendErr(errs, err)
		case n > last:
			b, err := h.client.HeaderByNumber(ctx, h.chain, n)
			if err != nil {
				sendErr(errs, err)
				break
			}
			last = n
			sendHead(heads, b)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type subscriptionMessage struct {
	ID     *uint64 `json:"id"`
	Method string  `json:"method"`
	Error  *Error  `json:"error"`
	Params struct {
		Subscription string    `json:"subscription"`
		Result       rawHeader `json:"result"`
	} `json:"params"`
}

func (h *HeadSource) subscribeLoop(ctx context.Context, heads chan<- *models.Block, errs chan<- error) {
	for {
		if err := h.subscribe(ctx, heads); err != nil && ctx.Err() == nil {
			sendErr(errs, err)
		}
		_ = h.Close()
		select {
		case <-ctx.Done():
			return
		case <-time.After(h.reconnectDelay):
		}
	}
}

// subscribe runs one websocket session and returns when it breaks.
func (h *HeadSource) subscribe(ctx context.Context, heads chan<- *models.Block) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, h.wsURL, nil)
	if err != nil {
		return fmt.Errorf("%s ws connect: %w", h.chain, err)
	}
	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()

	sub := request{JSONRPC: "2.0", ID: 1, Method: "eth_subscribe", Params: []any{"newHeads"}}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("%s subscribe: %w", h.chain, err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sessionCtx.Done():
				_ = h.Close()
				return
			case <-ticker.C:
				h.mu.Lock()
				if h.conn != nil {
					_ = h.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
				h.mu.Unlock()
			}
		}
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%s ws read: %w", h.chain, err)
		}
		var m subscriptionMessage
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		if m.Error != nil {
			return fmt.Errorf("%s subscribe: %w", h.chain, m.Error)
		}
		if m.Method != "eth_subscription" {
			continue
		}
		blk, err := m.Params.Result.block(h.chain)
		if err != nil {
			continue
		}
		sendHead(heads, blk)
	}
}

func sendHead(ch chan<- *models.Block, b *models.Block) {
	select {
	case ch <- b:
	default:
		// consumer is behind, drop the head
	}
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

var _ drepo.BlockSource = (*HeadSource)(nil)
