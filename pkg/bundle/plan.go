// Package bundle turns a list of buyers into the ordered transactions of one
// relay bundle: partition wallets into size-bounded groups, quote every buy
// against reserves threaded through the whole pass, then assemble and sign.
package bundle

import (
	"fmt"

	"github.com/ninja0404/pump-bundler/pkg/pricing"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// Partition is the result of Plan. Dropped counts items past capacity.
type Partition[T any] struct {
	Groups  [][]T
	Dropped int
}

// Kept flattens the groups back into input order.
func (p Partition[T]) Kept() []T {
	var out []T
	for _, g := range p.Groups {
		out = append(out, g...)
	}
	return out
}

// Plan fills groups of at most maxPerUnit items, in input order, and stops
// after maxUnits groups. Items beyond maxPerUnit*maxUnits are not planned;
// the caller decides how to report them.
func Plan[T any](items []T, maxPerUnit, maxUnits int) Partition[T] {
	if maxPerUnit <= 0 || maxUnits <= 0 {
		return Partition[T]{Dropped: len(items)}
	}
	capacity := maxPerUnit * maxUnits
	kept := items
	var p Partition[T]
	if len(items) > capacity {
		kept = items[:capacity]
		p.Dropped = len(items) - capacity
	}
	for start := 0; start < len(kept); start += maxPerUnit {
		end := min(start+maxPerUnit, len(kept))
		p.Groups = append(p.Groups, kept[start:end])
	}
	return p
}

// WalletQuote is one buy priced against the reserves every earlier buy in the
// pass left behind.
type WalletQuote struct {
	Index     int              `json:"index"`
	SolIn     uint64           `json:"sol_in"`
	TokensOut uint64           `json:"tokens_out"`
	Before    pricing.Reserves `json:"before"`
	After     pricing.Reserves `json:"after"`
}

// Simulate quotes buys in order, feeding each quote's post-trade reserves
// into the next. It assumes the bundle executes back to back with nothing
// interleaved; any other trade landing first makes the later quotes stale,
// which the slippage bound on each buy absorbs.
//
// start is oriented for a buy: Base is SOL, Quote is tokens.
func Simulate(start pricing.Reserves, buys []uint64, feeBps uint64) ([]WalletQuote, pricing.Reserves, error) {
	r := start
	quotes := make([]WalletQuote, 0, len(buys))
	for i, solIn := range buys {
		if solIn == 0 {
			return nil, start, types.Validationf("simulate buys", "buy #%d has zero amount", i)
		}
		q, err := pricing.QuoteBuy(solIn, r, feeBps)
		if err != nil {
			return nil, start, fmt.Errorf("simulate buy #%d: %w", i, err)
		}
		if q.AmountOut == 0 {
			return nil, start, types.Validationf("simulate buys", "buy #%d of %d lamports yields zero tokens", i, solIn)
		}
		quotes = append(quotes, WalletQuote{
			Index:     i,
			SolIn:     solIn,
			TokensOut: q.AmountOut,
			Before:    q.Before,
			After:     q.After,
		})
		r = q.After
	}
	return quotes, r, nil
}

// TotalSol sums the SOL spent across quotes.
func TotalSol(quotes []WalletQuote) uint64 {
	var total uint64
	for _, q := range quotes {
		total += q.SolIn
	}
	return total
}
