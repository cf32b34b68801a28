package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// rpcServer answers every JSON-RPC call through handle, echoing the request id.
func rpcServer(t *testing.T, handle func(method string, call int) (result any, status int)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		n := int(atomic.AddInt32(&calls, 1))
		result, status := handle(req.Method, n)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(url string) config.RPCConfig {
	cfg := config.DefaultRPCConfig()
	cfg.RPCURL = url
	cfg.Retry.InitialBackoff = time.Millisecond
	cfg.Retry.MaxBackoff = 2 * time.Millisecond
	cfg.RateLimit.RPS = 0
	return cfg
}

func TestGetSlotRetriesTransientFailure(t *testing.T) {
	srv, calls := rpcServer(t, func(method string, call int) (any, int) {
		assert.Equal(t, "getSlot", method)
		if call == 1 {
			return nil, http.StatusBadGateway
		}
		return 4242, http.StatusOK
	})

	c := NewClient(testConfig(srv.URL))
	slot, err := c.GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), slot)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestCallGivesUpAfterMaxAttempts(t *testing.T) {
	srv, calls := rpcServer(t, func(string, int) (any, int) {
		return nil, http.StatusServiceUnavailable
	})

	c := NewClient(testConfig(srv.URL))
	_, err := c.GetSlot(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.KindTransient, types.KindOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestGetAccountInfoNotFoundIsNotRetried(t *testing.T) {
	srv, calls := rpcServer(t, func(method string, _ int) (any, int) {
		assert.Equal(t, "getAccountInfo", method)
		return map[string]any{"context": map[string]any{"slot": 1}, "value": nil}, http.StatusOK
	})

	c := NewClient(testConfig(srv.URL))
	_, err := c.GetAccountInfo(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, types.ErrAccountNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGetBalance(t *testing.T) {
	srv, _ := rpcServer(t, func(method string, _ int) (any, int) {
		assert.Equal(t, "getBalance", method)
		return map[string]any{"context": map[string]any{"slot": 1}, "value": 1_500_000_000}, http.StatusOK
	})

	c := NewClient(testConfig(srv.URL))
	bal, err := c.GetBalance(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), bal)
}

func TestBackoffIsBounded(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.Retry.Jitter = false
	cfg.Retry.InitialBackoff = 10 * time.Millisecond
	cfg.Retry.MaxBackoff = 25 * time.Millisecond
	c := NewClient(cfg)

	assert.Equal(t, 10*time.Millisecond, c.backoff(0))
	assert.Equal(t, 20*time.Millisecond, c.backoff(1))
	assert.Equal(t, 25*time.Millisecond, c.backoff(5))
}
