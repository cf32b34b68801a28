package jito

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ninja0404/pump-bundler/pkg/bundle"
	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// MaxBundleTransactions is the block engine's per-bundle ceiling.
const MaxBundleTransactions = 5

const bundlesPath = "/api/v1/bundles"

// Labeled is a signed transaction with the name errors refer to it by.
type Labeled struct {
	Label string
	Tx    *solana.Transaction
}

// FromUnits labels assembled units by kind: "creation" or "buy #i".
func FromUnits(units []bundle.Unit) []Labeled {
	out := make([]Labeled, len(units))
	for i, u := range units {
		out[i] = Labeled{Label: u.Label, Tx: u.Tx}
	}
	return out
}

// FromTransactions labels bare transactions by position.
func FromTransactions(txs []*solana.Transaction) []Labeled {
	out := make([]Labeled, len(txs))
	for i, tx := range txs {
		out[i] = Labeled{Label: fmt.Sprintf("tx #%d", i), Tx: tx}
	}
	return out
}

// Accepted is one endpoint that returned a bundle id.
type Accepted struct {
	Endpoint string `json:"endpoint"`
	BundleID string `json:"bundle_id"`
}

// Failure is one endpoint that did not.
type Failure struct {
	Endpoint string `json:"endpoint"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// BundleResult collects every endpoint's answer, in endpoint order.
type BundleResult struct {
	Accepted []Accepted `json:"accepted"`
	Failures []Failure  `json:"failures,omitempty"`
}

// BundleIDs lists distinct accepted ids in endpoint order.
func (r BundleResult) BundleIDs() []string {
	seen := make(map[string]struct{}, len(r.Accepted))
	var ids []string
	for _, a := range r.Accepted {
		if _, ok := seen[a.BundleID]; ok {
			continue
		}
		seen[a.BundleID] = struct{}{}
		ids = append(ids, a.BundleID)
	}
	return ids
}

// Submitter posts one bundle to every configured block engine at once.
type Submitter struct {
	endpoints []string
	uuid      string
	sendToAll bool
	maxTxSize int
	http      *http.Client
	log       zerolog.Logger
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) SubmitterOption {
	return func(s *Submitter) { s.http = c }
}

// NewSubmitter builds a submitter over the relay settings and size limit in cfg.
func NewSubmitter(cfg config.Config, log zerolog.Logger, opts ...SubmitterOption) *Submitter {
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}
	timeout := cfg.Relay.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Submitter{
		endpoints: cfg.Relay.BlockEngines,
		uuid:      cfg.Relay.UUID,
		sendToAll: cfg.Relay.SendToAll,
		maxTxSize: cfg.Limits.MaxTxSize,
		http:      &http.Client{Timeout: timeout},
		log:       log.With().Str("component", "relay").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Encode serializes and base64-encodes txs in order. Any transaction over the
// size limit fails the whole bundle before anything is sent.
func (s *Submitter) Encode(txs []Labeled) ([]string, error) {
	if len(txs) == 0 {
		return nil, types.Validation("bundle guard", "bundle is empty")
	}
	if len(txs) > MaxBundleTransactions {
		return nil, types.Validationf("bundle guard", "%d transactions exceeds %d per bundle", len(txs), MaxBundleTransactions)
	}
	encoded := make([]string, len(txs))
	for i, t := range txs {
		if t.Tx == nil {
			return nil, types.Validationf("bundle guard", "transaction %d (%s) is nil", i, t.Label)
		}
		raw, err := t.Tx.MarshalBinary()
		if err != nil {
			return nil, types.Internal("bundle guard", fmt.Errorf("serialize transaction %d (%s): %w", i, t.Label, err))
		}
		if s.maxTxSize > 0 && len(raw) > s.maxTxSize {
			return nil, types.Validationf("bundle guard", "transaction %d (%s) is %d bytes, limit %d", i, t.Label, len(raw), s.maxTxSize)
		}
		encoded[i] = base64.StdEncoding.EncodeToString(raw)
	}
	return encoded, nil
}

type sendBundleRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type encodingParam struct {
	Encoding string `json:"encoding"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type sendBundleResponse struct {
	Result *string   `json:"result"`
	Error  *rpcError `json:"error"`
}

// Body is the sendBundle JSON-RPC request for encoded transactions.
func Body(encoded []string) ([]byte, error) {
	return json.Marshal(sendBundleRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "sendBundle",
		Params:  []any{encoded, encodingParam{Encoding: "base64"}},
	})
}

// Submit guards and encodes txs, then posts the identical bundle to every
// endpoint concurrently (or only the first when send-to-all is off). It
// succeeds when at least one endpoint returns a bundle id.
func (s *Submitter) Submit(ctx context.Context, txs []Labeled) (BundleResult, error) {
	encoded, err := s.Encode(txs)
	if err != nil {
		return BundleResult{}, err
	}
	body, err := Body(encoded)
	if err != nil {
		return BundleResult{}, types.Internal("encode sendBundle", err)
	}
	endpoints := s.endpoints
	if !s.sendToAll && len(endpoints) > 1 {
		endpoints = endpoints[:1]
	}
	if len(endpoints) == 0 {
		return BundleResult{}, types.Validation("submit bundle", "no block engine endpoints configured")
	}

	ids := make([]string, len(endpoints))
	errs := make([]error, len(endpoints))
	var g errgroup.Group
	for i, endpoint := range endpoints {
		g.Go(func() error {
			ids[i], errs[i] = s.post(ctx, endpoint, body)
			return nil
		})
	}
	_ = g.Wait()

	var res BundleResult
	for i, endpoint := range endpoints {
		if errs[i] != nil {
			s.log.Warn().Str("endpoint", endpoint).Err(errs[i]).Msg("relay skipped")
			res.Failures = append(res.Failures, Failure{
				Endpoint: endpoint,
				Reason:   errs[i].Error(),
				Err:      types.Relay(endpoint, errs[i]),
			})
			continue
		}
		s.log.Info().Str("endpoint", endpoint).Str("bundle_id", ids[i]).Msg("bundle accepted")
		res.Accepted = append(res.Accepted, Accepted{Endpoint: endpoint, BundleID: ids[i]})
	}
	if len(res.Accepted) == 0 {
		joined := make([]error, len(res.Failures))
		for i, f := range res.Failures {
			joined[i] = f.Err
		}
		return res, types.Relay("sendBundle", fmt.Errorf("all %d endpoints failed: %w", len(endpoints), errors.Join(joined...)))
	}
	return res, nil
}

func (s *Submitter) post(ctx context.Context, endpoint string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.bundleURL(endpoint), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var env sendBundleResponse
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && env.Error != nil {
			return "", fmt.Errorf("status %d: %s", resp.StatusCode, env.Error.Message)
		}
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", errors.New("empty response body")
	}
	if decodeErr != nil {
		return "", fmt.Errorf("malformed response: %w", decodeErr)
	}
	if env.Error != nil {
		return "", fmt.Errorf("relay error %d: %s", env.Error.Code, env.Error.Message)
	}
	if env.Result == nil || *env.Result == "" {
		return "", errors.New("response has no bundle id")
	}
	return *env.Result, nil
}

func (s *Submitter) bundleURL(endpoint string) string {
	u := strings.TrimRight(endpoint, "/") + bundlesPath
	if s.uuid != "" {
		u += "?uuid=" + url.QueryEscape(s.uuid)
	}
	return u
}
