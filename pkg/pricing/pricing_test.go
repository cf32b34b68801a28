package pricing

import (
	"math"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/types"
)

var launchCurve = Reserves{Base: 30_000_000_000, Quote: 1_073_000_000_000_000}

func TestQuoteBuyRegression(t *testing.T) {
	q, err := QuoteBuy(1_000_000_000, launchCurve, 100)
	require.NoError(t, err)

	// after = 990_000_000; out = floor(990_000_000 * 1_073e12 / 30_990_000_000)
	assert.Equal(t, uint64(34_277_831_558_567), q.AmountOut)
	assert.Equal(t, uint64(31_000_000_000), q.After.Base)
	assert.Equal(t, uint64(1_073_000_000_000_000-34_277_831_558_567), q.After.Quote)
	assert.Equal(t, launchCurve, q.Before)
}

func TestQuoteBuyProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		r := Reserves{
			Base:  1 + uint64(rng.Int63n(1_000_000_000_000)),
			Quote: 1 + uint64(rng.Int63n(1_000_000_000_000_000_000)),
		}
		in := 1 + uint64(rng.Int63n(1_000_000_000_000))
		fee := uint64(rng.Intn(10_000))

		q, err := QuoteBuy(in, r, fee)
		require.NoError(t, err)
		require.Less(t, q.AmountOut, r.Quote, "output must stay below the reserve")

		after := new(big.Int).SetUint64(in)
		after.Mul(after, big.NewInt(int64(10_000-fee)))
		after.Quo(after, big.NewInt(10_000))
		post := new(big.Int).Add(new(big.Int).SetUint64(r.Base), after)
		post.Mul(post, new(big.Int).SetUint64(r.Quote-q.AmountOut))
		require.True(t, post.Cmp(r.Product()) >= 0, "k must not decrease")
		require.True(t, q.After.Product().Cmp(r.Product()) >= 0, "stored reserves keep k")

		if q.AmountOut == 0 {
			continue
		}
		back := QuoteSellAmountIn(q.AmountOut, r, fee)
		if back == Impossible {
			continue
		}
		require.LessOrEqual(t, back, in, "inverse is minimal (in=%d r=%+v fee=%d)", in, r, fee)
		again, err := QuoteBuy(back, r, fee)
		require.NoError(t, err)
		require.GreaterOrEqual(t, again.AmountOut, q.AmountOut)
		if back > 1 {
			short, err := QuoteBuy(back-1, r, fee)
			require.NoError(t, err)
			require.Less(t, short.AmountOut, q.AmountOut)
		}
	}
}

func TestQuoteSellAmountInRoundTripFixture(t *testing.T) {
	q, err := QuoteBuy(1_000_000_000, launchCurve, 100)
	require.NoError(t, err)
	back := QuoteSellAmountIn(q.AmountOut, launchCurve, 100)
	assert.Equal(t, uint64(1_000_000_000), back)

	again, err := QuoteBuy(back, launchCurve, 100)
	require.NoError(t, err)
	assert.Equal(t, q.AmountOut, again.AmountOut)
	short, err := QuoteBuy(back-1, launchCurve, 100)
	require.NoError(t, err)
	assert.Less(t, short.AmountOut, q.AmountOut)
}

func TestQuoteSellAmountInImpossible(t *testing.T) {
	assert.Equal(t, Impossible, QuoteSellAmountIn(launchCurve.Quote, launchCurve, 100))
	assert.Equal(t, Impossible, QuoteSellAmountIn(launchCurve.Quote+1, launchCurve, 100))
	assert.Equal(t, Impossible, QuoteSellAmountIn(1, Reserves{Quote: 10}, 100))
	assert.Equal(t, uint64(0), QuoteSellAmountIn(0, launchCurve, 100))
}

func TestQuoteBuyRejects(t *testing.T) {
	_, err := QuoteBuy(1, Reserves{Base: 0, Quote: 1}, 100)
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = QuoteBuy(1, launchCurve, 10_001)
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = QuoteBuy(0, launchCurve, 100)
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestQuoteSell(t *testing.T) {
	curve := Reserves{Base: 1_073_000_000_000_000, Quote: 30_000_000_000}
	q, err := QuoteSell(1_000_000_000_000, curve, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(27_653_630), q.AmountOut)
	assert.Equal(t, uint64(30_000_000_000-27_932_960), q.After.Quote)
}

func TestClampU64(t *testing.T) {
	assert.Equal(t, uint64(0), ClampU64(nil))
	assert.Equal(t, uint64(0), ClampU64(big.NewInt(-5)))
	assert.Equal(t, uint64(42), ClampU64(big.NewInt(42)))
	assert.Equal(t, uint64(math.MaxUint64), ClampU64(new(big.Int).SetUint64(math.MaxUint64)))

	huge := new(big.Int).Lsh(big.NewInt(1), 100)
	assert.Equal(t, uint64(math.MaxUint64), ClampU64(huge))
}

func TestSlippageBounds(t *testing.T) {
	v, err := MinOut(10_000, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_500), v)

	v, err = MaxIn(10_000, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_500), v)

	v, err = MaxIn(math.MaxUint64, 10_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)

	_, err = MinOut(1, 10_001)
	assert.True(t, types.IsKind(err, types.KindValidation))
	_, err = MaxIn(1, 10_001)
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestAmmBuyQuote(t *testing.T) {
	pool := Reserves{Base: 200_000_000_000_000, Quote: 100_000_000_000}
	fees := AmmFees{LPBps: 30, ProtocolBps: 10, CreatorBps: 10}

	q, err := AmmBuyQuote(1_000_000_000, pool, fees)
	require.NoError(t, err)
	assert.Equal(t, uint64(995_024_875), q.SwapIn)
	assert.Equal(t, uint64(1_970_443_346_574), q.BaseOut)

	_, err = AmmBuyQuote(1, pool, AmmFees{LPBps: 10_000})
	assert.Error(t, err)
}

func TestAmmBounds(t *testing.T) {
	v, err := AmmMaxQuoteIn(1_000_000_000, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_050_000_002), v)

	v, err = AmmMinQuoteOut(9, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	v, err = AmmMinQuoteOut(1_000, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(950), v)
}

func TestSellQuote(t *testing.T) {
	pool := Reserves{Base: 200_000_000_000_000, Quote: 100_000_000_000}
	q, err := SellQuote(1_000_000_000_000, pool)
	require.NoError(t, err)
	assert.Equal(t, uint64(497_512_438), q.AmountOut)
}

func TestPriceMetrics(t *testing.T) {
	r := Reserves{Base: 1_000, Quote: 1_000_000}
	assert.Equal(t, uint64(1_000_000), SpotPrice(r))
	assert.Equal(t, uint64(0), PriceImpactBps(r, 1, 1_000))
	assert.Equal(t, uint64(1_000), PriceImpactBps(r, 11, 10_000))
	assert.Equal(t, uint64(0), PriceImpactBps(r, 1, 0))
}

func TestLamportConversions(t *testing.T) {
	assert.Equal(t, uint64(1_500_000_000), LamportsFromSOL(1.5))
	assert.Equal(t, uint64(10_000_000), LamportsFromSOL(0.01))
	assert.Equal(t, uint64(0), LamportsFromSOL(-1))
	assert.Equal(t, uint64(0), LamportsFromSOL(math.NaN()))
	assert.InDelta(t, 0.25, SOLFromLamports(250_000_000), 1e-12)
}
