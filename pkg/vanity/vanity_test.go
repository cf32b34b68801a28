package vanity

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

func TestGenerateSuffix(t *testing.T) {
	res, err := Generate(context.Background(), Options{Suffix: "a", CaseInsensitive: true, Workers: 2, Timeout: 30 * time.Second})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.ToLower(res.Key.PublicKey().String()), "a"))
	assert.NotZero(t, res.Attempts)

	sig, err := res.Key.SignMessage(context.Background(), []byte("msg"))
	require.NoError(t, err)
	assert.True(t, sig.Verify(res.Key.PublicKey(), []byte("msg")))
}

func TestGenerateValidates(t *testing.T) {
	_, err := Generate(context.Background(), Options{})
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = Generate(context.Background(), Options{Suffix: "0OIl"})
	assert.True(t, types.IsKind(err, types.KindValidation))
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Generate(ctx, Options{Prefix: "zzzzzzzzzz", Workers: 2})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEstimateDifficulty(t *testing.T) {
	assert.Equal(t, uint64(1), EstimateDifficulty(0, 0))
	assert.Equal(t, uint64(58*58*58*58), EstimateDifficulty(0, 4))
	assert.Equal(t, EstimateDifficulty(1, 2), EstimateDifficulty(3, 0))
}

func TestPoolLifecycle(t *testing.T) {
	keys, err := wallet.Generate(3)
	require.NoError(t, err)
	p := NewPool(keys, zerolog.Nop())

	a, ok := p.Grab()
	require.True(t, ok)
	b, ok := p.Grab()
	require.True(t, ok)
	assert.NotEqual(t, a.PublicKey(), b.PublicKey())
	assert.Equal(t, PoolStats{Available: 1, Pending: 2}, p.Stats())

	p.Confirm(a.PublicKey())
	p.Fail(b.PublicKey())
	assert.Equal(t, PoolStats{Available: 2, Pending: 0, Used: 1}, p.Stats())

	// Unknown or already settled keys are ignored.
	p.Confirm(a.PublicKey())
	p.Fail(a.PublicKey())
	assert.Equal(t, PoolStats{Available: 2, Used: 1}, p.Stats())

	_, _ = p.Grab()
	_, _ = p.Grab()
	_, ok = p.Grab()
	assert.False(t, ok)
}

func TestPoolSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vanity.json")
	empty, err := LoadPool(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, empty.Stats().Available)

	keys, err := wallet.Generate(2)
	require.NoError(t, err)
	p := NewPool(keys, zerolog.Nop())
	pending, _ := p.Grab()
	require.NoError(t, p.Save(path))

	loaded, err := LoadPool(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Stats().Available, "pending keys survive a restart")
	var found bool
	for range 2 {
		k, _ := loaded.Grab()
		found = found || k.PublicKey() == pending.PublicKey()
	}
	assert.True(t, found)
}

func TestPoolFill(t *testing.T) {
	p := NewPool(nil, zerolog.Nop())
	require.NoError(t, p.Fill(context.Background(), 2, Options{Suffix: "b", CaseInsensitive: true, Workers: 2}))
	assert.Equal(t, 2, p.Stats().Available)
	k, ok := p.Grab()
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(strings.ToLower(k.PublicKey().String()), "b"))
}
