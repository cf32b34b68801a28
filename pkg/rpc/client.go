package rpc

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// Client wraps solana-go rpc.Client with retry, timeout, and rate limiting.
// Every failure comes back as a types.RPCError, which classifies as transient.
type Client struct {
	raw     *solanarpc.Client
	cfg     config.RPCConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient builds a configured Client.
func NewClient(cfg config.RPCConfig) *Client {
	return newClient(solanarpc.New(cfg.ResolveRPCURL()), cfg)
}

// NewClientWithRaw wraps an existing solana-go client, e.g. one pointed at a test server.
func NewClientWithRaw(raw *solanarpc.Client, cfg config.RPCConfig) *Client {
	return newClient(raw, cfg)
}

func newClient(raw *solanarpc.Client, cfg config.RPCConfig) *Client {
	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst == 0 {
			burst = int(cfg.RateLimit.RPS * 2)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}

	log := cfg.Logger
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}

	return &Client{
		raw:     raw,
		cfg:     cfg,
		limiter: limiter,
		log:     log,
	}
}

// Raw exposes the underlying solana-go client.
func (c *Client) Raw() *solanarpc.Client {
	return c.raw
}

// Commitment is the commitment level reads are made at.
func (c *Client) Commitment() solanarpc.CommitmentType {
	if c.cfg.Commitment == "" {
		return solanarpc.CommitmentConfirmed
	}
	return solanarpc.CommitmentType(c.cfg.Commitment)
}

// GetLatestBlockhash fetches the latest blockhash at the configured commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*solanarpc.GetLatestBlockhashResult, error) {
	var out *solanarpc.GetLatestBlockhashResult
	err := c.call(ctx, "getLatestBlockhash", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetLatestBlockhash(ctx, c.Commitment())
		return err
	})
	return out, err
}

// GetSlot returns the current slot.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	err := c.call(ctx, "getSlot", func(ctx context.Context) error {
		var err error
		slot, err = c.raw.GetSlot(ctx, c.Commitment())
		return err
	})
	return slot, err
}

// GetBalance returns the lamport balance of account.
func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var out *solanarpc.GetBalanceResult
	err := c.call(ctx, "getBalance", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetBalance(ctx, account, c.Commitment())
		return err
	})
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}

// GetAccountInfo returns the raw account. A missing account is reported as
// types.ErrAccountNotFound and is not retried.
func (c *Client) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.Account, error) {
	var out *solanarpc.GetAccountInfoResult
	err := c.call(ctx, "getAccountInfo", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetAccountInfoWithOpts(ctx, account, &solanarpc.GetAccountInfoOpts{
			Commitment: c.Commitment(),
			Encoding:   solana.EncodingBase64,
		})
		return err
	})
	if errors.Is(err, solanarpc.ErrNotFound) || (err == nil && (out == nil || out.Value == nil)) {
		return nil, types.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return out.Value, nil
}

// GetAccountData returns just the account bytes.
func (c *Client) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	acc, err := c.GetAccountInfo(ctx, account)
	if err != nil {
		return nil, err
	}
	if acc.Data == nil {
		return nil, types.ErrAccountNotFound
	}
	return acc.Data.GetBinary(), nil
}

// GetMultipleAccounts returns accounts in request order; missing entries are nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) ([]*solanarpc.Account, error) {
	var out *solanarpc.GetMultipleAccountsResult
	err := c.call(ctx, "getMultipleAccounts", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetMultipleAccountsWithOpts(ctx, accounts, &solanarpc.GetMultipleAccountsOpts{
			Commitment: c.Commitment(),
			Encoding:   solana.EncodingBase64,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out.Value, nil
}

// GetSignatureStatuses returns one status per signature; unknown signatures are nil.
func (c *Client) GetSignatureStatuses(ctx context.Context, sigs ...solana.Signature) ([]*solanarpc.SignatureStatusesResult, error) {
	var out *solanarpc.GetSignatureStatusesResult
	err := c.call(ctx, "getSignatureStatuses", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetSignatureStatuses(ctx, false, sigs...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out.Value, nil
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error) {
	var sig solana.Signature
	err := c.call(ctx, "sendTransaction", func(ctx context.Context) error {
		var err error
		sig, err = c.raw.SendTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return sig, err
}

// SimulateTransaction simulates a transaction for debugging.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts *solanarpc.SimulateTransactionOpts) (*solanarpc.SimulateTransactionResponse, error) {
	var res *solanarpc.SimulateTransactionResponse
	err := c.call(ctx, "simulateTransaction", func(ctx context.Context) error {
		var err error
		res, err = c.raw.SimulateTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return res, err
}

func (c *Client) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return types.RPCError{Op: op, Err: err}
		}
	}

	attempts := 1
	if c.cfg.Retry.Enabled && c.cfg.Retry.MaxAttempts > 1 {
		attempts = c.cfg.Retry.MaxAttempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) || i == attempts-1 {
			break
		}
		backoff := c.backoff(i)
		c.log.Debug().
			Str("op", op).
			Int("attempt", i+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("rpc retry")

		select {
		case <-ctx.Done():
			return types.RPCError{Op: op, Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}
	if errors.Is(err, solanarpc.ErrNotFound) {
		return err
	}
	return types.RPCError{Op: op, Err: err}
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := c.cfg.Retry.InitialBackoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > c.cfg.Retry.MaxBackoff && c.cfg.Retry.MaxBackoff > 0 {
			delay = c.cfg.Retry.MaxBackoff
			break
		}
	}
	if c.cfg.Retry.Jitter && delay > 1 {
		jitter := rand.Int63n(int64(delay / 2))
		delay = delay/2 + time.Duration(jitter)
	}
	return delay
}

func retryable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, solanarpc.ErrNotFound) {
		return false
	}
	return true
}
