package jito

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/goccy/go-json"
	jitorpc "github.com/jito-labs/jito-go-rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

func signedTx(t *testing.T, lamports uint64) *solana.Transaction {
	t.Helper()
	keys, err := wallet.Generate(1)
	require.NoError(t, err)
	payer := keys[0]
	ix := system.NewTransferInstruction(lamports, payer.PublicKey(), solana.NewWallet().PublicKey()).Build()
	tx, err := txbuilder.Compile(solana.Hash{7}, payer.PublicKey(), nil, ix)
	require.NoError(t, err)
	require.NoError(t, txbuilder.SignTransaction(context.Background(), tx, payer))
	return tx
}

type captured struct {
	mu     sync.Mutex
	bodies [][]byte
	paths  []string
}

func (c *captured) add(r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies = append(c.bodies, raw)
	c.paths = append(c.paths, r.URL.RequestURI())
}

func relay(t *testing.T, c *captured, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.add(r)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func submitter(endpoints ...string) *Submitter {
	cfg := config.Default()
	cfg.Relay.BlockEngines = endpoints
	cfg.Relay.UUID = ""
	return NewSubmitter(cfg, zerolog.Nop())
}

func TestSubmitBody(t *testing.T) {
	var c captured
	srv := relay(t, &c, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"bundle-1"}`)
	txs := []*solana.Transaction{signedTx(t, 1), signedTx(t, 2)}

	res, err := submitter(srv.URL).Submit(context.Background(), FromTransactions(txs))
	require.NoError(t, err)
	assert.Equal(t, []string{"bundle-1"}, res.BundleIDs())
	assert.Empty(t, res.Failures)

	require.Len(t, c.bodies, 1)
	assert.Equal(t, "/api/v1/bundles", c.paths[0])
	var req struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      int               `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params"`
	}
	require.NoError(t, json.Unmarshal(c.bodies[0], &req))
	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, 1, req.ID)
	assert.Equal(t, "sendBundle", req.Method)
	require.Len(t, req.Params, 2)
	assert.JSONEq(t, `{"encoding":"base64"}`, string(req.Params[1]))

	var encoded []string
	require.NoError(t, json.Unmarshal(req.Params[0], &encoded))
	require.Len(t, encoded, 2)
	for i, s := range encoded {
		raw, err := base64.StdEncoding.DecodeString(s)
		require.NoError(t, err)
		want, err := txs[i].MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, want, raw, "tx %d keeps its position", i)
	}
}

func TestSubmitPartialFailure(t *testing.T) {
	var bad, good captured
	failing := relay(t, &bad, http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"bundle contains an expired blockhash"}}`)
	ok := relay(t, &good, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"abc"}`)

	res, err := submitter(failing.URL, ok.URL).Submit(context.Background(), FromTransactions([]*solana.Transaction{signedTx(t, 1)}))
	require.NoError(t, err)
	assert.Equal(t, []Accepted{{Endpoint: ok.URL, BundleID: "abc"}}, res.Accepted)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, failing.URL, res.Failures[0].Endpoint)
	assert.Contains(t, res.Failures[0].Reason, "expired blockhash")
	assert.True(t, types.IsKind(res.Failures[0].Err, types.KindRelay))
}

func TestSubmitAllFail(t *testing.T) {
	var c captured
	cases := []*httptest.Server{
		relay(t, &c, http.StatusInternalServerError, `{"error":{"code":-1,"message":"down"}}`),
		relay(t, &c, http.StatusOK, ``),
		relay(t, &c, http.StatusOK, `not json`),
		relay(t, &c, http.StatusOK, `{"jsonrpc":"2.0","id":1}`),
		relay(t, &c, http.StatusTooManyRequests, ``),
	}
	var endpoints []string
	for _, s := range cases {
		endpoints = append(endpoints, s.URL)
	}

	res, err := submitter(endpoints...).Submit(context.Background(), FromTransactions([]*solana.Transaction{signedTx(t, 1)}))
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindRelay))
	assert.Empty(t, res.Accepted)
	require.Len(t, res.Failures, len(endpoints))

	reasons := make([]string, len(res.Failures))
	for i, f := range res.Failures {
		assert.Equal(t, endpoints[i], f.Endpoint)
		reasons[i] = f.Reason
	}
	assert.Contains(t, reasons[0], "status 500: down")
	assert.Contains(t, reasons[1], "empty response body")
	assert.Contains(t, reasons[2], "malformed response")
	assert.Contains(t, reasons[3], "no bundle id")
	assert.Contains(t, reasons[4], "status 429")
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res, err := submitter(url).Submit(context.Background(), FromTransactions([]*solana.Transaction{signedTx(t, 1)}))
	require.Error(t, err)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0].Reason, "post")
}

func TestSubmitSingleEndpoint(t *testing.T) {
	var first, second captured
	a := relay(t, &first, http.StatusOK, `{"result":"one"}`)
	b := relay(t, &second, http.StatusOK, `{"result":"two"}`)

	cfg := config.Default()
	cfg.Relay.BlockEngines = []string{a.URL, b.URL}
	cfg.Relay.SendToAll = false
	cfg.Relay.UUID = "team key"
	s := NewSubmitter(cfg, zerolog.Nop())

	res, err := s.Submit(context.Background(), FromTransactions([]*solana.Transaction{signedTx(t, 1)}))
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, res.BundleIDs())
	require.Len(t, first.paths, 1)
	assert.Equal(t, "/api/v1/bundles?uuid=team+key", first.paths[0])
	assert.Empty(t, second.paths)
}

func TestSubmitDistinctIDs(t *testing.T) {
	var c captured
	a := relay(t, &c, http.StatusOK, `{"result":"same"}`)
	b := relay(t, &c, http.StatusOK, `{"result":"same"}`)

	res, err := submitter(a.URL, b.URL).Submit(context.Background(), FromTransactions([]*solana.Transaction{signedTx(t, 1)}))
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 2)
	assert.Equal(t, []string{"same"}, res.BundleIDs())
}

func TestEncodeGuard(t *testing.T) {
	var c captured
	srv := relay(t, &c, http.StatusOK, `{"result":"x"}`)
	cfg := config.Default()
	cfg.Relay.BlockEngines = []string{srv.URL}
	s := NewSubmitter(cfg, zerolog.Nop())

	tx := signedTx(t, 1)
	size, err := txbuilder.SerializedSize(tx)
	require.NoError(t, err)
	txs := []Labeled{{Label: "creation", Tx: signedTx(t, 1)}, {Label: "buy #0", Tx: tx}}
	s.maxTxSize = size - 1
	_, err = s.Submit(context.Background(), txs)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindValidation))
	assert.Contains(t, err.Error(), "transaction 0 (creation)")
	assert.Empty(t, c.bodies, "nothing is sent when the guard trips")

	s.maxTxSize = size
	_, err = s.Encode(txs)
	require.NoError(t, err)

	_, err = s.Encode(nil)
	assert.True(t, types.IsKind(err, types.KindValidation))
	six := make([]Labeled, MaxBundleTransactions+1)
	for i := range six {
		six[i] = Labeled{Label: "tx", Tx: tx}
	}
	_, err = s.Encode(six)
	assert.True(t, types.IsKind(err, types.KindValidation))
	_, err = s.Encode([]Labeled{{Label: "buy #3"}})
	assert.ErrorContains(t, err, "buy #3")
}

type fakeAPI struct {
	tips      string
	inflight  []string
	statuses  []string
	calls     atomic.Int32
	failUntil int32
	failWith  error

	inflightCalls  int
	inflightFails  int
	inflightParams []interface{}
}

func (f *fakeAPI) fail() error {
	if n := f.calls.Add(1); n <= f.failUntil {
		return f.failWith
	}
	return nil
}

func (f *fakeAPI) GetTipAccounts() (json.RawMessage, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return json.RawMessage(f.tips), nil
}

func (f *fakeAPI) GetBundleStatuses([]string) (*jitorpc.BundleStatusResponse, error) {
	var resp jitorpc.BundleStatusResponse
	body := `{"context":{"slot":1},"value":[]}`
	if len(f.statuses) > 0 {
		body = f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *fakeAPI) GetInflightBundleStatuses(params interface{}) (json.RawMessage, error) {
	f.inflightCalls++
	f.inflightParams = append(f.inflightParams, params)
	if f.inflightCalls <= f.inflightFails {
		return nil, errors.New("502 bad gateway")
	}
	body := `{"context":{"slot":1},"value":[]}`
	if len(f.inflight) > 0 {
		body = f.inflight[0]
		if len(f.inflight) > 1 {
			f.inflight = f.inflight[1:]
		}
	}
	return json.RawMessage(body), nil
}

func client(apis ...API) *Client {
	return NewClientWithAPIs(apis, config.MainnetTipAccounts, zerolog.Nop()).WithRetries(4, time.Millisecond)
}

func TestGetTipAccountsRetriesRateLimit(t *testing.T) {
	tip := config.MainnetTipAccounts[0]
	api := &fakeAPI{
		tips:      `["` + tip.String() + `","not-a-key"]`,
		failUntil: 2,
		failWith:  errors.New("429 rate limit exceeded"),
	}
	got, err := client(api).GetTipAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []solana.PublicKey{tip}, got)
	assert.Equal(t, int32(3), api.calls.Load())
}

func TestGetTipAccountsStopsOnOtherErrors(t *testing.T) {
	api := &fakeAPI{failUntil: 10, failWith: errors.New("connection refused")}
	_, err := client(api).GetTipAccounts(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindRelay))
	assert.Equal(t, int32(1), api.calls.Load())

	_, err = NewClientWithAPIs(nil, nil, zerolog.Nop()).GetTipAccounts(context.Background())
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestRandomTipAccount(t *testing.T) {
	c := client(&fakeAPI{})
	for range 20 {
		assert.Contains(t, config.MainnetTipAccounts, c.RandomTipAccount())
	}
	assert.True(t, NewClientWithAPIs(nil, nil, zerolog.Nop()).RandomTipAccount().IsZero())
}

func TestRefreshTipAccounts(t *testing.T) {
	fresh := solana.NewWallet().PublicKey()
	c := client(&fakeAPI{tips: `["` + fresh.String() + `"]`})
	got, err := c.RefreshTipAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []solana.PublicKey{fresh}, got)
	assert.Equal(t, fresh, c.RandomTipAccount())

	c = client(&fakeAPI{tips: `[]`})
	_, err = c.RefreshTipAccounts(context.Background())
	require.NoError(t, err)
	assert.Contains(t, config.MainnetTipAccounts, c.RandomTipAccount())
}

func TestPollBundleLanded(t *testing.T) {
	api := &fakeAPI{inflight: []string{
		`{"context":{"slot":1},"value":[{"bundle_id":"b1","status":"Pending","landed_slot":null}]}`,
		`{"context":{"slot":2},"value":[{"bundle_id":"b1","status":"Landed","landed_slot":42}]}`,
	}}
	out, err := client(api).PollBundle(context.Background(), "b1", time.Millisecond, 5)
	require.NoError(t, err)
	assert.Equal(t, BundleLanded, out.Status)
	assert.Equal(t, uint64(42), out.Slot)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, "b1", out.BundleID)
	assert.NoError(t, out.Err())
}

func TestPollBundleRetriesQueryErrors(t *testing.T) {
	api := &fakeAPI{
		inflightFails: 1,
		inflight:      []string{`{"context":{"slot":2},"value":[{"bundle_id":"b1","status":"Landed","landed_slot":7}]}`},
	}
	out, err := client(api).PollBundle(context.Background(), "b1", time.Millisecond, 5)
	require.NoError(t, err)
	assert.Equal(t, BundleLanded, out.Status)
	assert.Equal(t, uint64(7), out.Slot)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 2, api.inflightCalls)
	assert.Equal(t, [][]string{{"b1"}}, api.inflightParams[0])
}

func TestPollBundleRequestShape(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies = map[string]json.RawMessage{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &req)
		mu.Lock()
		bodies[req.Method] = req.Params
		mu.Unlock()
		switch req.Method {
		case "getInflightBundleStatuses":
			_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[{"bundle_id":"abc","status":"Pending","landed_slot":null}]}}`)
		default:
			_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[{"bundle_id":"abc","transactions":[],"slot":3,"confirmation_status":"confirmed","err":{"Ok":null}}]}}`)
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Relay.BlockEngines = []string{srv.URL}
	cfg.Relay.UUID = ""
	out, err := NewClient(cfg, zerolog.Nop()).PollBundle(context.Background(), "abc", time.Millisecond, 3)
	require.NoError(t, err)
	assert.Equal(t, BundleLanded, out.Status)
	assert.Equal(t, 1, out.Attempts)

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `[["abc"]]`, string(bodies["getInflightBundleStatuses"]))
	assert.JSONEq(t, `[["abc"]]`, string(bodies["getBundleStatuses"]))
}

func TestPollBundleConfirmedStatus(t *testing.T) {
	api := &fakeAPI{statuses: []string{
		`{"context":{"slot":1},"value":[{"bundle_id":"b1","transactions":[],"slot":9,"confirmation_status":"processed","err":{"Ok":null}}]}`,
		`{"context":{"slot":1},"value":[{"bundle_id":"b1","transactions":[],"slot":9,"confirmation_status":"confirmed","err":{"Ok":null}}]}`,
	}}
	out, err := client(api).PollBundle(context.Background(), "b1", time.Millisecond, 5)
	require.NoError(t, err)
	assert.Equal(t, BundleLanded, out.Status)
	assert.Equal(t, 2, out.Attempts)
}

func TestPollBundleFailed(t *testing.T) {
	api := &fakeAPI{inflight: []string{`{"value":[{"bundle_id":"b1","status":"Failed"}]}`}}
	out, err := client(api).PollBundle(context.Background(), "b1", time.Millisecond, 5)
	require.NoError(t, err)
	assert.Equal(t, BundleFailed, out.Status)
	assert.Equal(t, 1, out.Attempts)
	assert.True(t, types.IsKind(out.Err(), types.KindRejected))
}

func TestPollBundleTimesOut(t *testing.T) {
	out, err := client(&fakeAPI{}).PollBundle(context.Background(), "b1", time.Millisecond, 3)
	require.NoError(t, err)
	assert.Equal(t, BundleTimedOut, out.Status)
	assert.Equal(t, 3, out.Attempts)
	assert.True(t, types.IsKind(out.Err(), types.KindTimeout))

	_, err = client(&fakeAPI{}).PollBundle(context.Background(), "b1", time.Millisecond, 0)
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestPollBundleHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client(&fakeAPI{}).PollBundle(ctx, "b1", 5*time.Millisecond, 1000)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
