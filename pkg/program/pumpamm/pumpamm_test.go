package pumpamm

import (
	"bytes"
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func TestSwapAccountOrder(t *testing.T) {
	accs := SwapAccounts{
		Pool: key(1), User: key(2), GlobalConfig: key(3), BaseMint: key(4), QuoteMint: key(5),
		UserBaseTokenAccount: key(6), UserQuoteTokenAccount: key(7),
		PoolBaseTokenAccount: key(8), PoolQuoteTokenAccount: key(9),
		ProtocolFeeRecipient: key(10), ProtocolFeeRecipientTokenAccount: key(11),
		BaseTokenProgram: key(12), QuoteTokenProgram: key(13), SystemProgram: key(14),
		AssociatedTokenProgram: key(15), EventAuthority: key(16), Program: key(17),
		CoinCreatorVaultAta: key(18), CoinCreatorVaultAuthority: key(19),
	}
	metas := accs.ToAccountMetas()
	require.Len(t, metas, 19)
	for i, m := range metas {
		assert.Equal(t, key(byte(i+1)), m.PublicKey, "index %d", i)
	}
	assert.True(t, metas[1].IsSigner)
	assert.True(t, metas[17].IsWritable, "creator vault ata is writable")
	assert.False(t, metas[18].IsWritable)
}

func TestBuildSellPayload(t *testing.T) {
	ix, err := BuildSell(SellAccounts{Program: key(17)}, SellArgs{BaseAmountIn: 5, MinQuoteAmountOut: 1})
	require.NoError(t, err)
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{51, 230, 133, 164, 1, 127, 131, 173}, data[:8])
	assert.Equal(t, uint64(5), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, key(17), ix.ProgramID())
}

func TestPoolCoinCreatorOffset(t *testing.T) {
	in := Pool{
		PoolBump:    254,
		Index:       0,
		Creator:     key(1),
		BaseMint:    key(2),
		QuoteMint:   solana.WrappedSol,
		LpMint:      key(3),
		LpSupply:    100,
		CoinCreator: key(9),
	}
	buf := bytes.NewBuffer(nil)
	buf.Write(PoolDiscriminator)
	require.NoError(t, bin.NewBorshEncoder(buf).Encode(in))
	data := buf.Bytes()
	require.Len(t, data, CoinCreatorOffset+32)

	cc, err := CoinCreatorFromData(data)
	require.NoError(t, err)
	assert.Equal(t, key(9), cc)

	var out Pool
	require.NoError(t, out.Unmarshal(data))
	assert.Equal(t, in, out)

	_, err = CoinCreatorFromData(data[:200])
	assert.Error(t, err)
}
