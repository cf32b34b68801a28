// Package pricing implements the constant-product swap math used to quote
// bonding-curve and AMM trades.
//
// A Reserves value is oriented by trade direction: Base is the reserve the
// trader pays into and Quote is the reserve the trader receives from. For a
// bonding-curve buy that is (virtual SOL, virtual tokens); for an AMM sell it
// is (pool tokens, pool SOL).
//
// All arithmetic runs on math/big with floor division, which biases quoted
// outputs down. Quotes are estimates against a snapshot; the chain may move
// before execution, so every swap builder takes a mandatory slippage bound
// derived with MinOut or MaxIn.
package pricing

import (
	"math"
	"math/big"

	"github.com/ninja0404/pump-bundler/pkg/types"
)

// Impossible is returned by QuoteSellAmountIn when the desired output would
// drain the reserve.
const Impossible uint64 = math.MaxUint64

const bpsDivisor = 10_000

var (
	bigBps    = big.NewInt(bpsDivisor)
	bigMaxU64 = new(big.Int).SetUint64(math.MaxUint64)
	bigOne    = big.NewInt(1)
	bigScale  = big.NewInt(1_000_000_000)
)

// Reserves is a snapshot of the two sides of a pool.
type Reserves struct {
	Base  uint64 `json:"base"`
	Quote uint64 `json:"quote"`
}

// Product returns Base*Quote without overflow.
func (r Reserves) Product() *big.Int {
	return new(big.Int).Mul(u(r.Base), u(r.Quote))
}

// Quote is the outcome of one simulated swap.
type Quote struct {
	AmountIn  uint64   `json:"amount_in"`
	AmountOut uint64   `json:"amount_out"`
	Before    Reserves `json:"before"`
	After     Reserves `json:"after"`
}

// ClampU64 saturates v into the u64 wire range: negatives become 0 and
// values above MaxUint64 become MaxUint64. Amount fields are capped rather
// than rejected.
func ClampU64(v *big.Int) uint64 {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	if v.Cmp(bigMaxU64) > 0 {
		return math.MaxUint64
	}
	return v.Uint64()
}

// QuoteBuy prices amountIn against r with feeBps taken from the input.
//
//	after = amountIn * (10000 - feeBps) / 10000
//	out   = after * r.Quote / (r.Base + after)
//
// The full amountIn enters the base reserve, so the fee only grows it.
func QuoteBuy(amountIn uint64, r Reserves, feeBps uint64) (Quote, error) {
	if err := checkReserves(r); err != nil {
		return Quote{}, err
	}
	if feeBps > bpsDivisor {
		return Quote{}, types.Validationf("pricing.quote_buy", "fee bps %d exceeds %d", feeBps, bpsDivisor)
	}
	if amountIn == 0 {
		return Quote{}, types.Validation("pricing.quote_buy", types.ErrZeroAmount.Error())
	}

	after := afterFee(amountIn, feeBps)
	out := new(big.Int).Mul(after, u(r.Quote))
	out.Quo(out, new(big.Int).Add(u(r.Base), after))
	amountOut := ClampU64(out)

	return Quote{
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Before:    r,
		After: Reserves{
			Base:  ClampU64(new(big.Int).Add(u(r.Base), u(amountIn))),
			Quote: r.Quote - amountOut,
		},
	}, nil
}

// QuoteSellAmountIn is the inverse of QuoteBuy: the smallest input that
// receives at least desiredOut. Both floor steps of QuoteBuy are undone with
// ceilings, so QuoteBuy(QuoteSellAmountIn(d)).AmountOut >= d and one lamport
// less falls short. It returns Impossible when desiredOut >= r.Quote or r is empty.
func QuoteSellAmountIn(desiredOut uint64, r Reserves, feeBps uint64) uint64 {
	if desiredOut >= r.Quote || r.Base == 0 || feeBps >= bpsDivisor {
		return Impossible
	}
	if desiredOut == 0 {
		return 0
	}
	after := ceilDiv(new(big.Int).Mul(u(desiredOut), u(r.Base)), u(r.Quote-desiredOut))
	return ClampU64(ceilDiv(after.Mul(after, bigBps), u(bpsDivisor-feeBps)))
}

// QuoteSell prices a curve sell: out is taken from r.Quote and the fee comes
// off the output.
func QuoteSell(amountIn uint64, r Reserves, feeBps uint64) (Quote, error) {
	if err := checkReserves(r); err != nil {
		return Quote{}, err
	}
	if feeBps > bpsDivisor {
		return Quote{}, types.Validationf("pricing.quote_sell", "fee bps %d exceeds %d", feeBps, bpsDivisor)
	}
	if amountIn == 0 {
		return Quote{}, types.Validation("pricing.quote_sell", types.ErrZeroAmount.Error())
	}
	gross := new(big.Int).Mul(u(amountIn), u(r.Quote))
	gross.Quo(gross, new(big.Int).Add(u(r.Base), u(amountIn)))
	grossOut := ClampU64(gross)

	net := new(big.Int).Mul(gross, u(bpsDivisor-feeBps))
	net.Quo(net, bigBps)

	return Quote{
		AmountIn:  amountIn,
		AmountOut: ClampU64(net),
		Before:    r,
		After: Reserves{
			Base:  ClampU64(new(big.Int).Add(u(r.Base), u(amountIn))),
			Quote: r.Quote - grossOut,
		},
	}, nil
}

// SellQuote is the fee-less constant-product step used for AMM sells:
// k / (Base + in) is the new quote reserve and the difference is paid out.
func SellQuote(amountIn uint64, r Reserves) (Quote, error) {
	if err := checkReserves(r); err != nil {
		return Quote{}, err
	}
	newBase := new(big.Int).Add(u(r.Base), u(amountIn))
	newQuote := new(big.Int).Quo(r.Product(), newBase)
	out := new(big.Int).Sub(u(r.Quote), newQuote)
	return Quote{
		AmountIn:  amountIn,
		AmountOut: ClampU64(out),
		Before:    r,
		After:     Reserves{Base: ClampU64(newBase), Quote: ClampU64(newQuote)},
	}, nil
}

// AmmFees are the three fees the pump AMM charges on top of a buy.
type AmmFees struct {
	LPBps       uint64
	ProtocolBps uint64
	CreatorBps  uint64
}

// Total is the sum of all three fees.
func (f AmmFees) Total() uint64 {
	return f.LPBps + f.ProtocolBps + f.CreatorBps
}

// AmmBuy is the result of AmmBuyQuote.
type AmmBuy struct {
	QuoteIn  uint64   `json:"quote_in"`
	SwapIn   uint64   `json:"swap_in"`
	BaseOut  uint64   `json:"base_out"`
	Reserves Reserves `json:"reserves"`
}

// AmmBuyQuote prices spending quoteIn SOL on a pool with reserves pool
// (Base = pool tokens, Quote = pool SOL). Fees are charged on top of the
// swapped amount:
//
//	swapIn  = quoteIn * 10000 / (10000 + lp + protocol + creator)
//	baseOut = Base - k / (Quote + swapIn - 1)
func AmmBuyQuote(quoteIn uint64, pool Reserves, fees AmmFees) (AmmBuy, error) {
	if err := checkReserves(pool); err != nil {
		return AmmBuy{}, err
	}
	swapIn := new(big.Int).Mul(u(quoteIn), bigBps)
	swapIn.Quo(swapIn, u(bpsDivisor+fees.Total()))
	if swapIn.Sign() == 0 {
		return AmmBuy{}, types.Validationf("pricing.amm_buy_quote", "input %d lamports is below one unit after fees", quoteIn)
	}

	newQuote := new(big.Int).Add(u(pool.Quote), swapIn)
	newQuote.Sub(newQuote, bigOne)
	newBase := new(big.Int).Quo(pool.Product(), newQuote)
	baseOut := new(big.Int).Sub(u(pool.Base), newBase)

	return AmmBuy{
		QuoteIn:  quoteIn,
		SwapIn:   ClampU64(swapIn),
		BaseOut:  ClampU64(baseOut),
		Reserves: pool,
	}, nil
}

// MinOut applies slippage to an expected output.
func MinOut(amount, slippageBps uint64) (uint64, error) {
	if err := types.ValidateSlippage(slippageBps); err != nil {
		return 0, err
	}
	v := new(big.Int).Mul(u(amount), u(bpsDivisor-slippageBps))
	return ClampU64(v.Quo(v, bigBps)), nil
}

// MaxIn applies slippage to an expected input, saturating at MaxUint64.
func MaxIn(amount, slippageBps uint64) (uint64, error) {
	if err := types.ValidateSlippage(slippageBps); err != nil {
		return 0, err
	}
	v := new(big.Int).Mul(u(amount), u(bpsDivisor+slippageBps))
	return ClampU64(v.Quo(v, bigBps)), nil
}

// AmmMaxQuoteIn is the pump AMM buy ceiling: input plus slippage plus two
// lamports of rounding headroom.
func AmmMaxQuoteIn(quoteIn, slippageBps uint64) (uint64, error) {
	v, err := MaxIn(quoteIn, slippageBps)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint64-2 {
		return math.MaxUint64, nil
	}
	return v + 2, nil
}

// AmmMinQuoteOut is the pump AMM sell floor. Dust outputs below ten
// lamports get a floor of one, since slippage math would round them to zero.
func AmmMinQuoteOut(quoteOut, slippageBps uint64) (uint64, error) {
	if quoteOut < 10 {
		if err := types.ValidateSlippage(slippageBps); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return MinOut(quoteOut, slippageBps)
}

// SpotPrice is Base per unit of Quote, scaled by 1e9.
func SpotPrice(r Reserves) uint64 {
	if r.Quote == 0 {
		return 0
	}
	v := new(big.Int).Mul(u(r.Base), bigScale)
	return ClampU64(v.Quo(v, u(r.Quote)))
}

// PriceImpactBps compares the execution price amountIn/amountOut with the
// spot price of r. A trade that executes at or better than spot reports 0.
func PriceImpactBps(r Reserves, amountIn, amountOut uint64) uint64 {
	if r.Base == 0 || amountOut == 0 {
		return 0
	}
	// (in/out - base/quote) / (base/quote) = (in*quote - base*out) / (base*out)
	lhs := new(big.Int).Mul(u(amountIn), u(r.Quote))
	rhs := new(big.Int).Mul(u(r.Base), u(amountOut))
	if lhs.Cmp(rhs) <= 0 {
		return 0
	}
	diff := new(big.Int).Sub(lhs, rhs)
	diff.Mul(diff, bigBps)
	return ClampU64(diff.Quo(diff, rhs))
}

// LamportsFromSOL converts a SOL amount to lamports, rounding to the nearest
// lamport. Negative and NaN inputs yield 0.
func LamportsFromSOL(sol float64) uint64 {
	if math.IsNaN(sol) || sol <= 0 {
		return 0
	}
	v := math.Round(sol * 1e9)
	if v >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(v)
}

// SOLFromLamports converts lamports to SOL for display.
func SOLFromLamports(lamports uint64) float64 {
	return float64(lamports) / 1e9
}

func checkReserves(r Reserves) error {
	if r.Base == 0 || r.Quote == 0 {
		return types.Validation("pricing", types.ErrZeroReserves.Error())
	}
	return nil
}

func afterFee(amount, feeBps uint64) *big.Int {
	v := new(big.Int).Mul(u(amount), u(bpsDivisor-feeBps))
	return v.Quo(v, bigBps)
}

func ceilDiv(num, den *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, bigOne)
	}
	return q
}

func u(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
