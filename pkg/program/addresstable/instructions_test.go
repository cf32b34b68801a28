package addresstable

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var program = solana.MustPublicKeyFromBase58("AddressLookupTab1e1111111111111111111111111")

func TestBuildCreate(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	addr, bump, err := DeriveAddress(program, authority, 12345)
	require.NoError(t, err)

	ix, err := BuildCreate(program, CreateAccounts{
		LookupTable: addr, Authority: authority, Payer: authority, SystemProgram: solana.SystemProgramID,
	}, CreateArgs{RecentSlot: 12345, BumpSeed: bump})
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 13)
	assert.Equal(t, InstructionCreate, binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, uint64(12345), binary.LittleEndian.Uint64(data[4:12]))
	assert.Equal(t, bump, data[12])
	assert.Equal(t, program, ix.ProgramID())
}

func TestDeriveAddressIsDeterministic(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	a, _, err := DeriveAddress(program, authority, 1)
	require.NoError(t, err)
	b, _, err := DeriveAddress(program, authority, 1)
	require.NoError(t, err)
	c, _, err := DeriveAddress(program, authority, 2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestBuildExtend(t *testing.T) {
	keys := []solana.PublicKey{solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()}
	ix, err := BuildExtend(program, ExtendAccounts{}, ExtendArgs{Addresses: keys})
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 12+64)
	assert.Equal(t, InstructionExtend, binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(data[4:12]))
	assert.Equal(t, keys[0][:], data[12:44])
	assert.Equal(t, keys[1][:], data[44:76])

	metas := ix.Accounts()
	require.Len(t, metas, 4)
	assert.True(t, metas[1].IsSigner, "authority signs extend")

	_, err = BuildExtend(program, ExtendAccounts{}, ExtendArgs{})
	assert.Error(t, err)
}

func TestDeactivateAndClose(t *testing.T) {
	ix, err := BuildDeactivate(program, DeactivateAccounts{})
	require.NoError(t, err)
	data, _ := ix.Data()
	assert.Equal(t, []byte{3, 0, 0, 0}, data)
	assert.Len(t, ix.Accounts(), 2)

	ix, err = BuildClose(program, CloseAccounts{})
	require.NoError(t, err)
	data, _ = ix.Data()
	assert.Equal(t, []byte{4, 0, 0, 0}, data)
	assert.Len(t, ix.Accounts(), 3)
}
