package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handle func(method string, params []json.RawMessage) (any, *Error)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rpcErr := handle(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBlockNumberAndHeader(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *Error) {
		switch method {
		case "eth_blockNumber":
			return "0x12d687", nil
		case "eth_getBlockByNumber":
			assert.JSONEq(t, `"0x12d687"`, string(params[0]))
			return map[string]string{"number": "0x12d687", "timestamp": "0x6553f100"}, nil
		}
		return nil, &Error{Code: -32601, Message: "method not found"}
	})
	c := New(srv.URL)

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1234567), n)

	b, err := c.HeaderByNumber(context.Background(), "ETHEREUM", n)
	require.NoError(t, err)
	assert.Equal(t, "ETHEREUM", b.Chain)
	assert.Equal(t, int64(0x6553f100), b.Timestamp)
}

func TestCallContractEncodesCall(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *Error) {
		require.Equal(t, "eth_call", method)
		var msg map[string]string
		require.NoError(t, json.Unmarshal(params[0], &msg))
		assert.Equal(t, "0xpool", msg["to"])
		assert.Equal(t, "0x01020304", msg["data"])
		assert.JSONEq(t, `"0x10"`, string(params[1]))
		return "0x00ff", nil
	})
	out, err := New(srv.URL).CallContract(context.Background(), "0xpool", []byte{1, 2, 3, 4}, 16)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, out)
}

func TestNodeErrorsDoNotOpenBreaker(t *testing.T) {
	srv := rpcServer(t, func(string, []json.RawMessage) (any, *Error) {
		return nil, &Error{Code: 3, Message: "execution reverted"}
	})
	c := New(srv.URL, WithBreaker("test", 2, time.Minute))
	for i := 0; i < 5; i++ {
		err := c.Call(context.Background(), "eth_call", nil)
		var rpcErr *Error
		require.True(t, errors.As(err, &rpcErr))
	}
}

func TestTransportFailuresOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, WithBreaker("test", 3, time.Minute))
	for i := 0; i < 3; i++ {
		require.Error(t, c.Call(context.Background(), "eth_blockNumber", nil))
	}
	err := c.Call(context.Background(), "eth_blockNumber", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), hits.Load())
}

func TestQuantityHelpers(t *testing.T) {
	n, err := ParseQuantity("0xff")
	require.NoError(t, err)
	assert.Equal(t, uint64(255), n)
	_, err = ParseQuantity("ff")
	assert.Error(t, err)
	assert.Equal(t, "0x0", EncodeQuantity(0))

	b, err := DecodeBytes("0xabc")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0xbc}, b)
}

func TestHeadSourcePolls(t *testing.T) {
	var block atomic.Uint64
	block.Store(100)
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *Error) {
		switch method {
		case "eth_blockNumber":
			return EncodeQuantity(block.Add(1)), nil
		default:
			var tag string
			_ = json.Unmarshal(params[0], &tag)
			n, _ := ParseQuantity(tag)
			return map[string]string{"number": tag, "timestamp": EncodeQuantity(1_700_000_000 + n)}, nil
		}
	})
	h := NewHeadSource("POLYGON", New(srv.URL), WithPollInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	heads, _ := h.Heads(ctx)
	first := <-heads
	second := <-heads
	assert.Equal(t, "POLYGON", first.Chain)
	assert.Greater(t, second.Number, first.Number)
	assert.Equal(t, int64(1_700_000_000+second.Number), second.Timestamp)
}

func TestHeadSourceSubscribes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var sub request
		require.NoError(t, conn.ReadJSON(&sub))
		assert.Equal(t, "eth_subscribe", sub.Method)

		_ = conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": sub.ID, "result": "0xsub"})
		_ = conn.WriteJSON(map[string]any{
			"jsonrpc": "2.0",
			"method":  "eth_subscription",
			"params": map[string]any{
				"subscription": "0xsub",
				"result":       map[string]string{"number": "0x10", "timestamp": "0x20"},
			},
		})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	h := NewHeadSource("ARBITRUM", New(srv.URL), WithWebsocket(wsURL))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	heads, _ := h.Heads(ctx)
	select {
	case b := <-heads:
		assert.Equal(t, uint64(16), b.Number)
		assert.Equal(t, int64(32), b.Timestamp)
		assert.Equal(t, "ARBITRUM", b.Chain)
	case <-time.After(2 * time.Second):
		t.Fatal("no head received")
	}
	require.NoError(t, h.Close())
}
