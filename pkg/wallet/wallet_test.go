package wallet

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/types"
)

func TestStoreRoundTrip(t *testing.T) {
	keys, err := Generate(3)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, SaveStore(path, keys))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadStore(path)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i := range keys {
		assert.Equal(t, keys[i].PublicKey(), loaded[i].PublicKey())
	}
}

func TestParseStoreRejectsMismatchedPubkey(t *testing.T) {
	keys, err := Generate(2)
	require.NoError(t, err)
	raw := []byte(`{"wallets":[{"pubkey":"` + keys[1].PublicKey().String() + `","privkey":"` + base58.Encode(keys[0].PrivateKey()) + `"}]}`)

	_, err = ParseStore(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestParseStoreRejectsShortKey(t *testing.T) {
	keys, err := Generate(1)
	require.NoError(t, err)
	raw := []byte(`{"wallets":[{"pubkey":"` + keys[0].PublicKey().String() + `","privkey":"` + base58.Encode(keys[0].PrivateKey()[:32]) + `"}]}`)

	_, err = ParseStore(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 64 bytes")
}

func TestZeroStopsSigning(t *testing.T) {
	keys, err := Generate(1)
	require.NoError(t, err)
	k := keys[0]

	_, err = k.SignMessage(context.Background(), []byte("msg"))
	require.NoError(t, err)

	ZeroAll(keys)
	_, err = k.SignMessage(context.Background(), []byte("msg"))
	assert.Error(t, err, "copies share the wiped backing array")
}

func TestSignMessageHonorsCancel(t *testing.T) {
	keys, err := Generate(1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = keys[0].SignMessage(ctx, []byte("msg"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSniperAmounts(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, tc := range []struct {
		n     int
		total uint64
	}{
		{1, 500_000_000},
		{5, 2_000_000_000},
		{12, 130_000_000},
		{20, 200_000_000},
	} {
		amounts, err := SniperAmounts(tc.n, tc.total, rng)
		require.NoError(t, err)
		require.Len(t, amounts, tc.n)

		var sum uint64
		for i, a := range amounts {
			sum += a
			assert.GreaterOrEqual(t, a, MinSniperLamports)
			if i > 0 {
				assert.LessOrEqual(t, amounts[i-1], a, "sorted ascending")
			}
		}
		assert.Equal(t, tc.total, sum)
	}
}

func TestSniperAmountsRejects(t *testing.T) {
	_, err := SniperAmounts(0, 1_000_000_000, nil)
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = SniperAmounts(10, 90_000_000, nil)
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestFundingNeeded(t *testing.T) {
	assert.Equal(t, uint64(1_500_000_000), FundingNeeded(5, 1_000_000_000))
	assert.Equal(t, uint64(7), FundingNeeded(0, 7))
}
