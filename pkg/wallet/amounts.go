package wallet

import (
	"math/rand"
	"sort"

	"github.com/ninja0404/pump-bundler/pkg/types"
)

const (
	// MinSniperLamports is the smallest buy handed to a single sniper (0.01 SOL).
	MinSniperLamports uint64 = 10_000_000
	// SniperFeeReserve is sent on top of each buy to cover fees and rent (0.1 SOL).
	SniperFeeReserve uint64 = 100_000_000
)

// SniperAmounts splits total lamports across n snipers. Each share varies by up
// to 30% around the even split, is at least MinSniperLamports, and the shares
// sum to total exactly. The result is sorted ascending.
func SniperAmounts(n int, total uint64, rng *rand.Rand) ([]uint64, error) {
	if n <= 0 {
		return nil, types.Validation("sniper amounts", "sniper count must be positive")
	}
	if total/uint64(n) < MinSniperLamports {
		return nil, types.Validationf("sniper amounts", "total %d lamports is below %d per sniper", total, MinSniperLamports)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	base := total / uint64(n)
	spread := base * 3 / 10
	amounts := make([]uint64, 0, n)
	remaining := total
	for i := 0; i < n-1; i++ {
		lo := base - spread
		if lo < MinSniperLamports {
			lo = MinSniperLamports
		}
		hi := base + spread
		if ceiling := remaining - uint64(n-i-1)*MinSniperLamports; hi > ceiling {
			hi = ceiling
		}
		if lo > hi {
			lo = hi
		}
		amt := lo + uint64(rng.Int63n(int64(hi-lo)+1))
		amounts = append(amounts, amt)
		remaining -= amt
	}
	amounts = append(amounts, remaining)

	sort.Slice(amounts, func(i, j int) bool { return amounts[i] < amounts[j] })
	return amounts, nil
}

// FundingNeeded is what a funder must hold to seed n snipers buying total lamports.
func FundingNeeded(n int, total uint64) uint64 {
	if n <= 0 {
		return total
	}
	return total + uint64(n)*SniperFeeReserve
}
