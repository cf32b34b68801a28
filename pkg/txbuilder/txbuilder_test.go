package txbuilder

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

func keys(t *testing.T, n int) []wallet.Local {
	t.Helper()
	out, err := wallet.Generate(n)
	require.NoError(t, err)
	return out
}

func TestCompileLegacyAndSign(t *testing.T) {
	ks := keys(t, 2)
	payer, other := ks[0], ks[1]
	recipient := solana.NewWallet().PublicKey()

	tx, err := Compile(solana.Hash{1}, payer.PublicKey(), nil,
		system.NewTransferInstruction(1, payer.PublicKey(), recipient).Build(),
		system.NewTransferInstruction(2, other.PublicKey(), recipient).Build(),
	)
	require.NoError(t, err)
	assert.False(t, tx.Message.IsVersioned())
	assert.Equal(t, payer.PublicKey(), tx.Message.AccountKeys[0])
	assert.Equal(t, uint8(2), tx.Message.Header.NumRequiredSignatures)

	err = SignTransaction(context.Background(), tx, payer)
	assert.True(t, types.IsKind(err, types.KindValidation), "second signer is missing")

	require.NoError(t, SignTransaction(context.Background(), tx, other, payer))
	require.Len(t, tx.Signatures, 2)
	require.NoError(t, tx.VerifySignatures())

	size, err := SerializedSize(tx)
	require.NoError(t, err)
	assert.Greater(t, size, 0)
	assert.LessOrEqual(t, size, 1232)
}

func TestCompileV0UsesLookupTable(t *testing.T) {
	payer := keys(t, 1)[0]
	recipient := solana.NewWallet().PublicKey()
	table := solana.NewWallet().PublicKey()

	tx, err := Compile(solana.Hash{2}, payer.PublicKey(),
		map[solana.PublicKey]solana.PublicKeySlice{table: {recipient}},
		system.NewTransferInstruction(1, payer.PublicKey(), recipient).Build(),
	)
	require.NoError(t, err)
	assert.True(t, tx.Message.IsVersioned())
	require.Len(t, tx.Message.AddressTableLookups, 1)
	assert.Equal(t, table, tx.Message.AddressTableLookups[0].AccountKey)
	assert.NotContains(t, tx.Message.AccountKeys, recipient)

	require.NoError(t, SignTransaction(context.Background(), tx, payer))
	legacy, err := Compile(solana.Hash{2}, payer.PublicKey(), nil,
		system.NewTransferInstruction(1, payer.PublicKey(), recipient).Build(),
	)
	require.NoError(t, err)
	require.NoError(t, SignTransaction(context.Background(), legacy, payer))

	v0Size, err := SerializedSize(tx)
	require.NoError(t, err)
	legacySize, err := SerializedSize(legacy)
	require.NoError(t, err)
	assert.NotEqual(t, legacySize, v0Size)
}

func TestCompileRejectsEmpty(t *testing.T) {
	_, err := Compile(solana.Hash{}, solana.NewWallet().PublicKey(), nil)
	assert.ErrorIs(t, err, types.ErrNoInstructions)

	_, err = Compile(solana.Hash{}, solana.PublicKey{}, nil, system.NewTransferInstruction(1, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()).Build())
	assert.ErrorIs(t, err, types.ErrNilFeePayer)
}

func TestBuilderWithoutClient(t *testing.T) {
	b := NewBuilder(nil, nil, config.PollSpec{})
	_, err := b.BuildTransaction(context.Background(), solana.NewWallet().PublicKey(), nil)
	assert.ErrorIs(t, err, types.ErrNilRPC)
}
