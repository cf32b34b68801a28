package pda

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/config"
)

var mint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

func TestATAMatchesLibrary(t *testing.T) {
	r := NewResolver(config.Default())
	owner := solana.NewWallet().PublicKey()

	got, gotBump, err := r.ATA(owner, mint)
	require.NoError(t, err)
	want, wantBump, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, wantBump, gotBump)
}

func TestMetadataMatchesLibrary(t *testing.T) {
	r := NewResolver(config.Default())
	got, _, err := r.Metadata(mint)
	require.NoError(t, err)
	want, _, err := solana.FindTokenMetadataAddress(mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSeedsAndPrograms(t *testing.T) {
	cfg := config.Default()
	r := NewResolver(cfg)
	creator := solana.NewWallet().PublicKey()

	curve, _, err := r.BondingCurve(mint)
	require.NoError(t, err)
	want, _, err := solana.FindProgramAddress([][]byte{[]byte("bonding-curve"), mint[:]}, cfg.Programs.Pump)
	require.NoError(t, err)
	assert.Equal(t, want, curve)

	assocCurve, _, err := r.AssociatedBondingCurve(mint)
	require.NoError(t, err)
	wantAssoc, _, err := solana.FindAssociatedTokenAddress(curve, mint)
	require.NoError(t, err)
	assert.Equal(t, wantAssoc, assocCurve)

	vault, _, err := r.CreatorVault(creator)
	require.NoError(t, err)
	ammVault, _, err := r.AmmCreatorVault(creator)
	require.NoError(t, err)
	assert.NotEqual(t, vault, ammVault, "pump and AMM vaults use different seeds and programs")

	wantAmm, _, err := solana.FindProgramAddress([][]byte{[]byte("creator_vault"), creator[:]}, cfg.Programs.PumpAmm)
	require.NoError(t, err)
	assert.Equal(t, wantAmm, ammVault)
}

func TestCanonicalPool(t *testing.T) {
	cfg := config.Default()
	r := NewResolver(cfg)

	authority, _, err := r.PoolAuthority(mint)
	require.NoError(t, err)

	idx := make([]byte, 2)
	binary.LittleEndian.PutUint16(idx, 0)
	want, _, err := solana.FindProgramAddress([][]byte{
		[]byte("pool"), idx, authority[:], mint[:], cfg.Accounts.WSOLMint[:],
	}, cfg.Programs.PumpAmm)
	require.NoError(t, err)

	got, _, err := r.CanonicalPool(mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other, _, err := r.Pool(1, authority, mint, cfg.Accounts.WSOLMint)
	require.NoError(t, err)
	assert.NotEqual(t, got, other)
}

func TestLookupTableDependsOnSlot(t *testing.T) {
	r := NewResolver(config.Default())
	authority := solana.NewWallet().PublicKey()
	a, _, err := r.LookupTable(authority, 100)
	require.NoError(t, err)
	b, _, err := r.LookupTable(authority, 101)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestResolverFollowsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Programs.Pump = solana.NewWallet().PublicKey()
	a, _, err := NewResolver(cfg).BondingCurve(mint)
	require.NoError(t, err)
	b, _, err := NewResolver(config.Default()).BondingCurve(mint)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
