// Package jito talks to Jito block engines: bundle submission fanned out to
// every configured region, tip account discovery, and bundle status polling.
//
// For the JSON-RPC client used for reads, see: https://github.com/jito-labs/jito-go-rpc
package jito

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/goccy/go-json"
	jitorpc "github.com/jito-labs/jito-go-rpc"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// API is the read surface of one block engine. *jitorpc.JitoJsonRpcClient satisfies it.
type API interface {
	GetTipAccounts() (json.RawMessage, error)
	GetBundleStatuses(bundleIDs []string) (*jitorpc.BundleStatusResponse, error)
	GetInflightBundleStatuses(params interface{}) (json.RawMessage, error)
}

// Client rotates reads across block engines and retries rate-limited calls.
type Client struct {
	apis         []API
	mu           sync.RWMutex
	tipAccounts  []solana.PublicKey
	currentIndex uint32
	maxRetries   int
	retryDelay   time.Duration
	log          zerolog.Logger
}

// NewClient opens one JSON-RPC client per configured block engine.
func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	apis := make([]API, 0, len(cfg.Relay.BlockEngines))
	for _, endpoint := range cfg.Relay.BlockEngines {
		apis = append(apis, jitorpc.NewJitoJsonRpcClient(strings.TrimRight(endpoint, "/")+"/api/v1", cfg.Relay.UUID))
	}
	return NewClientWithAPIs(apis, cfg.Relay.TipAccounts, log)
}

// NewClientWithAPIs builds a client over caller-supplied engines.
func NewClientWithAPIs(apis []API, tipAccounts []solana.PublicKey, log zerolog.Logger) *Client {
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}
	return &Client{
		apis:        apis,
		tipAccounts: tipAccounts,
		maxRetries:  len(apis) + 2, // every engine once plus a couple of retries
		retryDelay:  100 * time.Millisecond,
		log:         log,
	}
}

// WithRetries configures the number of retries and delay between retries.
func (c *Client) WithRetries(maxRetries int, retryDelay time.Duration) *Client {
	c.maxRetries = maxRetries
	c.retryDelay = retryDelay
	return c
}

func (c *Client) next() API {
	idx := atomic.AddUint32(&c.currentIndex, 1)
	return c.apis[int(idx)%len(c.apis)]
}

// isRateLimitError checks if the error is a rate limit error.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "congested") ||
		strings.Contains(msg, "429")
}

// call retries fn on rate limiting, moving to the next engine each time.
func call[T any](ctx context.Context, c *Client, op string, fn func(API) (T, error)) (T, error) {
	var zero T
	if len(c.apis) == 0 {
		return zero, types.Validation(op, "no block engines configured")
	}
	attempt := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := fn(c.next())
		if err != nil && !isRateLimitError(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryDelay)),
		backoff.WithMaxTries(uint(max(c.maxRetries, 1))),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Debug().Str("op", op).Int("attempt", attempt).Dur("backoff", next).Err(err).Msg("block engine rate limited")
		}),
	)
	if err != nil {
		// The permanent marker is local to this loop.
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return zero, types.Relay(op, err)
	}
	return res, nil
}

// GetTipAccounts asks a block engine for its current tip accounts.
func (c *Client) GetTipAccounts(ctx context.Context) ([]solana.PublicKey, error) {
	raw, err := call(ctx, c, "getTipAccounts", func(api API) (json.RawMessage, error) {
		return api.GetTipAccounts()
	})
	if err != nil {
		return nil, err
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, types.Relay("getTipAccounts", fmt.Errorf("unmarshal tip accounts: %w", err))
	}
	result := make([]solana.PublicKey, 0, len(accounts))
	for _, acc := range accounts {
		pk, err := solana.PublicKeyFromBase58(acc)
		if err != nil {
			continue
		}
		result = append(result, pk)
	}
	return result, nil
}

// RefreshTipAccounts replaces the configured tip accounts with the ones a
// block engine reports. An empty answer keeps the current set.
func (c *Client) RefreshTipAccounts(ctx context.Context) ([]solana.PublicKey, error) {
	accounts, err := c.GetTipAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		c.mu.Lock()
		c.tipAccounts = accounts
		c.mu.Unlock()
	}
	return accounts, nil
}

// RandomTipAccount picks one of the known tip accounts without a network call.
func (c *Client) RandomTipAccount() solana.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.tipAccounts) == 0 {
		return solana.PublicKey{}
	}
	return c.tipAccounts[rand.Intn(len(c.tipAccounts))]
}

// GetBundleStatuses returns the landed status of submitted bundles.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) (*jitorpc.BundleStatusResponse, error) {
	return call(ctx, c, "getBundleStatuses", func(api API) (*jitorpc.BundleStatusResponse, error) {
		return api.GetBundleStatuses(bundleIDs)
	})
}

// InflightStatus is one entry of getInflightBundleStatuses.
type InflightStatus struct {
	BundleID   string  `json:"bundle_id"`
	Status     string  `json:"status"`
	LandedSlot *uint64 `json:"landed_slot"`
}

// GetInflightBundleStatuses reports bundles from the last five minutes:
// Invalid, Pending, Failed or Landed.
func (c *Client) GetInflightBundleStatuses(ctx context.Context, bundleIDs []string) ([]InflightStatus, error) {
	raw, err := call(ctx, c, "getInflightBundleStatuses", func(api API) (json.RawMessage, error) {
		return api.GetInflightBundleStatuses([][]string{bundleIDs})
	})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Value []InflightStatus `json:"value"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, types.Relay("getInflightBundleStatuses", fmt.Errorf("unmarshal: %w", err))
	}
	return resp.Value, nil
}

// BundleStatus is the terminal state of PollBundle.
type BundleStatus string

const (
	BundleLanded   BundleStatus = "landed"
	BundleFailed   BundleStatus = "failed"
	BundleTimedOut BundleStatus = "timed_out"
)

// BundleOutcome reports how a bundle poll ended.
type BundleOutcome struct {
	BundleID string       `json:"bundle_id"`
	Status   BundleStatus `json:"status"`
	Slot     uint64       `json:"slot,omitempty"`
	Attempts int          `json:"attempts"`
	Reason   string       `json:"reason,omitempty"`
}

// Err converts a non-landed outcome into a tagged error.
func (o BundleOutcome) Err() error {
	switch o.Status {
	case BundleLanded:
		return nil
	case BundleFailed:
		return types.Rejected("bundle "+o.BundleID, o.Reason)
	default:
		return types.Timeout("bundle "+o.BundleID, o.Attempts)
	}
}

var errBundlePending = errors.New("bundle pending")

// PollBundle checks id every interval, at most maxAttempts times. A Failed
// in-flight status is terminal; a Landed one, or a confirmed entry in
// getBundleStatuses, ends the poll as landed. Query errors are retried.
// The returned error is non-nil only when ctx ends first.
func (c *Client) PollBundle(ctx context.Context, id string, interval time.Duration, maxAttempts int) (BundleOutcome, error) {
	if maxAttempts <= 0 {
		return BundleOutcome{}, types.Validationf("poll bundle", "max attempts must be positive, got %d", maxAttempts)
	}
	attempts := 0
	op := func() (BundleOutcome, error) {
		attempts++
		inflight, err := c.GetInflightBundleStatuses(ctx, []string{id})
		if err != nil {
			return BundleOutcome{}, err
		}
		for _, st := range inflight {
			if st.BundleID != "" && st.BundleID != id {
				continue
			}
			switch st.Status {
			case "Failed":
				return BundleOutcome{Status: BundleFailed, Reason: "block engine reported Failed"}, nil
			case "Landed":
				out := BundleOutcome{Status: BundleLanded}
				if st.LandedSlot != nil {
					out.Slot = *st.LandedSlot
				}
				return out, nil
			}
		}
		statuses, err := c.GetBundleStatuses(ctx, []string{id})
		if err != nil {
			return BundleOutcome{}, err
		}
		if statuses != nil {
			for _, st := range statuses.Value {
				switch st.ConfirmationStatus {
				case "confirmed", "finalized":
					return BundleOutcome{Status: BundleLanded}, nil
				}
			}
		}
		return BundleOutcome{}, errBundlePending
	}
	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Debug().Str("bundle_id", id).Int("attempt", attempts).Dur("backoff", next).Err(err).Msg("bundle pending")
		}),
	)
	out.BundleID = id
	out.Attempts = attempts
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("poll bundle %s: %w", id, ctxErr)
	}
	out.Status = BundleTimedOut
	out.Reason = err.Error()
	return out, nil
}

// PollSpec runs PollBundle with a configured interval and bound.
func (c *Client) PollSpec(ctx context.Context, id string, spec config.PollSpec) (BundleOutcome, error) {
	return c.PollBundle(ctx, id, spec.Interval, spec.MaxAttempts)
}
