// Package vanity searches for mint keypairs whose address carries a chosen
// prefix or suffix, and keeps a pool of pre-generated ones so a launch does
// not wait on the search.
package vanity

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// DefaultSuffix is the suffix pump.fun mints carry.
const DefaultSuffix = "pump"

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Result is a matching keypair and what it took to find it.
type Result struct {
	Key      wallet.Local
	Attempts uint64
	Duration time.Duration
}

// Options configures a search.
type Options struct {
	Prefix          string
	Suffix          string
	Workers         int           // default: NumCPU
	Timeout         time.Duration // 0 = until ctx ends
	CaseInsensitive bool
}

func (o Options) validate() error {
	if o.Prefix == "" && o.Suffix == "" {
		return types.Validation("vanity search", "prefix or suffix is required")
	}
	for _, r := range o.Prefix + o.Suffix {
		if !strings.ContainsRune(base58Alphabet, r) {
			return types.Validationf("vanity search", "%q is not a base58 character", r)
		}
	}
	return nil
}

type matcher struct {
	prefix, suffix string
	fold           bool
}

func newMatcher(o Options) matcher {
	m := matcher{prefix: o.Prefix, suffix: o.Suffix, fold: o.CaseInsensitive}
	if m.fold {
		m.prefix = strings.ToLower(m.prefix)
		m.suffix = strings.ToLower(m.suffix)
	}
	return m
}

func (m matcher) match(addr string) bool {
	if m.fold {
		addr = strings.ToLower(addr)
	}
	return strings.HasPrefix(addr, m.prefix) && strings.HasSuffix(addr, m.suffix)
}

// Generate runs Workers goroutines drawing random keys until one matches.
//
// Example:
//
//	res, err := vanity.Generate(ctx, vanity.Options{Suffix: "pump"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Key.PublicKey(), res.Attempts)
func Generate(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	searchCtx, stop := context.WithCancel(ctx)
	defer stop()

	m := newMatcher(opts)
	start := time.Now()
	var (
		attempts atomic.Uint64
		winner   atomic.Pointer[solana.PrivateKey]
	)
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for searchCtx.Err() == nil {
				key, err := solana.NewRandomPrivateKey()
				if err != nil {
					return fmt.Errorf("vanity search: %w", err)
				}
				attempts.Add(1)
				if m.match(key.PublicKey().String()) {
					if winner.CompareAndSwap(nil, &key) {
						stop()
					}
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, types.Internal("vanity search", err)
	}
	if key := winner.Load(); key != nil {
		return &Result{Key: wallet.NewLocalFromPrivateKey(*key), Attempts: attempts.Load(), Duration: time.Since(start)}, nil
	}
	return nil, fmt.Errorf("vanity search cancelled after %d attempts: %w", attempts.Load(), ctx.Err())
}

// EstimateDifficulty is the expected number of attempts for a case-sensitive
// pattern of the given lengths: 58^(prefixLen+suffixLen).
func EstimateDifficulty(prefixLen, suffixLen int) uint64 {
	result := uint64(1)
	for range prefixLen + suffixLen {
		result *= 58
	}
	return result
}
