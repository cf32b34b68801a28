// Package confirm polls the cluster until a signature settles or an account appears.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// Status is the terminal state of a poll.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Outcome reports how a poll ended.
type Outcome struct {
	Status   Status `json:"status"`
	Attempts int    `json:"attempts"`
	Reason   string `json:"reason,omitempty"`
}

// Err converts a non-confirmed outcome into a tagged error.
func (o Outcome) Err(op string) error {
	switch o.Status {
	case StatusConfirmed:
		return nil
	case StatusFailed:
		return types.Rejected(op, o.Reason)
	default:
		return types.Timeout(op, o.Attempts)
	}
}

// StatusSource is the slice of the RPC surface the poller reads from.
// *solanarpc.Client satisfies it.
type StatusSource interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error)
}

// Poller runs bounded, fixed-interval polls.
type Poller struct {
	src StatusSource
	log zerolog.Logger
	// MinStatus, when set, is the lowest confirmation status accepted.
	// Empty accepts any status without an error, which is how landed
	// bundles are detected at processed commitment.
	MinStatus solanarpc.ConfirmationStatusType
}

// NewPoller builds a poller over src.
func NewPoller(src StatusSource, log zerolog.Logger) *Poller {
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}
	return &Poller{src: src, log: log}
}

var errPending = errors.New("not yet visible")

// Poll checks sig every interval, at most maxAttempts times. A status with an
// error ends the poll as failed; query errors and missing statuses are retried.
// The returned error is non-nil only when ctx ends first.
func (p *Poller) Poll(ctx context.Context, sig solana.Signature, interval time.Duration, maxAttempts int) (Outcome, error) {
	attempts := 0
	op := func() (Outcome, error) {
		attempts++
		res, err := p.src.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return Outcome{}, err
		}
		if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
			return Outcome{}, errPending
		}
		st := res.Value[0]
		if st.Err != nil {
			return Outcome{Status: StatusFailed, Reason: types.DescribeTxError(st.Err)}, nil
		}
		if !p.satisfied(st.ConfirmationStatus) {
			return Outcome{}, errPending
		}
		return Outcome{Status: StatusConfirmed}, nil
	}
	return p.run(ctx, "signature", sig.String(), op, interval, maxAttempts, &attempts)
}

// AwaitAccount waits until key exists on chain.
func (p *Poller) AwaitAccount(ctx context.Context, key solana.PublicKey, interval time.Duration, maxAttempts int) (Outcome, error) {
	attempts := 0
	op := func() (Outcome, error) {
		attempts++
		res, err := p.src.GetAccountInfo(ctx, key)
		if err != nil {
			return Outcome{}, err
		}
		if res == nil || res.Value == nil {
			return Outcome{}, errPending
		}
		return Outcome{Status: StatusConfirmed}, nil
	}
	return p.run(ctx, "account", key.String(), op, interval, maxAttempts, &attempts)
}

// PollSpec runs Poll with a configured interval and bound.
func (p *Poller) PollSpec(ctx context.Context, sig solana.Signature, spec config.PollSpec) (Outcome, error) {
	return p.Poll(ctx, sig, spec.Interval, spec.MaxAttempts)
}

func (p *Poller) run(ctx context.Context, what, id string, op backoff.Operation[Outcome], interval time.Duration, maxAttempts int, attempts *int) (Outcome, error) {
	if maxAttempts <= 0 {
		return Outcome{}, types.Validationf("poll "+what, "max attempts must be positive, got %d", maxAttempts)
	}
	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.log.Debug().Str(what, id).Int("attempt", *attempts).Dur("backoff", next).Err(err).Msg("poll pending")
		}),
	)
	out.Attempts = *attempts
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("poll %s %s: %w", what, id, ctxErr)
	}
	out.Status = StatusTimedOut
	out.Reason = err.Error()
	return out, nil
}

func (p *Poller) satisfied(got solanarpc.ConfirmationStatusType) bool {
	switch p.MinStatus {
	case solanarpc.ConfirmationStatusConfirmed:
		return got == solanarpc.ConfirmationStatusConfirmed || got == solanarpc.ConfirmationStatusFinalized
	case solanarpc.ConfirmationStatusFinalized:
		return got == solanarpc.ConfirmationStatusFinalized
	default:
		return true
	}
}
