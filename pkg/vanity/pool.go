package vanity

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// Pool hands out pre-generated mint keys. A grabbed key is pending until the
// launch using it either lands (Confirm removes it) or fails (Fail returns it).
type Pool struct {
	mu        sync.Mutex
	available []wallet.Local
	pending   map[solana.PublicKey]wallet.Local
	used      int
	log       zerolog.Logger
}

// PoolStats counts keys by state.
type PoolStats struct {
	Available int `json:"available"`
	Pending   int `json:"pending"`
	Used      int `json:"used"`
}

// NewPool builds a pool over keys.
func NewPool(keys []wallet.Local, log zerolog.Logger) *Pool {
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}
	return &Pool{
		available: append([]wallet.Local(nil), keys...),
		pending:   make(map[solana.PublicKey]wallet.Local),
		log:       log.With().Str("component", "vanity").Logger(),
	}
}

// LoadPool reads a wallets.json-format file. A missing file is an empty pool.
func LoadPool(path string, log zerolog.Logger) (*Pool, error) {
	keys, err := wallet.LoadStore(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewPool(nil, log), nil
	}
	if err != nil {
		return nil, err
	}
	p := NewPool(keys, log)
	p.log.Info().Int("keys", len(keys)).Str("path", path).Msg("vanity pool loaded")
	return p, nil
}

// Save writes every key not yet confirmed, pending ones included.
func (p *Pool) Save(path string) error {
	p.mu.Lock()
	keys := append([]wallet.Local(nil), p.available...)
	for _, k := range p.pending {
		keys = append(keys, k)
	}
	p.mu.Unlock()
	return wallet.SaveStore(path, keys)
}

// Fill searches until the pool holds n available keys.
func (p *Pool) Fill(ctx context.Context, n int, opts Options) error {
	for {
		p.mu.Lock()
		have := len(p.available)
		p.mu.Unlock()
		if have >= n {
			return nil
		}
		res, err := Generate(ctx, opts)
		if err != nil {
			return err
		}
		p.log.Debug().Str("pubkey", res.Key.PublicKey().String()).Uint64("attempts", res.Attempts).Dur("took", res.Duration).Msg("vanity key found")
		p.Add(res.Key)
	}
}

// Add puts keys back into circulation.
func (p *Pool) Add(keys ...wallet.Local) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = append(p.available, keys...)
}

// Grab takes a random available key and marks it pending.
func (p *Pool) Grab() (wallet.Local, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.available) == 0 {
		return wallet.Local{}, false
	}
	i := rand.Intn(len(p.available))
	key := p.available[i]
	p.available[i] = p.available[len(p.available)-1]
	p.available = p.available[:len(p.available)-1]
	p.pending[key.PublicKey()] = key
	return key, true
}

// Confirm drops a pending key for good.
func (p *Pool) Confirm(pub solana.PublicKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[pub]; ok {
		delete(p.pending, pub)
		p.used++
	}
}

// Fail returns a pending key to the available set.
func (p *Pool) Fail(pub solana.PublicKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if key, ok := p.pending[pub]; ok {
		delete(p.pending, pub)
		p.available = append(p.available, key)
	}
}

// Stats reports the current counts.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Available: len(p.available), Pending: len(p.pending), Used: p.used}
}
