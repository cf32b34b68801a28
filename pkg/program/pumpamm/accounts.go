package pumpamm

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var PoolDiscriminator = []byte{241, 154, 109, 4, 17, 177, 109, 188}

// CoinCreatorOffset is the byte offset of Pool.CoinCreator in raw account data.
const CoinCreatorOffset = 211

// Pool is the AMM pool account state.
type Pool struct {
	PoolBump              uint8            `bin:"pool_bump"`
	Index                 uint16           `bin:"index"`
	Creator               solana.PublicKey `bin:"creator"`
	BaseMint              solana.PublicKey `bin:"base_mint"`
	QuoteMint             solana.PublicKey `bin:"quote_mint"`
	LpMint                solana.PublicKey `bin:"lp_mint"`
	PoolBaseTokenAccount  solana.PublicKey `bin:"pool_base_token_account"`
	PoolQuoteTokenAccount solana.PublicKey `bin:"pool_quote_token_account"`
	LpSupply              uint64           `bin:"lp_supply"`
	CoinCreator           solana.PublicKey `bin:"coin_creator"`
}

func (a *Pool) Unmarshal(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("account pool: data too short")
	}
	if !bytes.Equal(data[:8], PoolDiscriminator) {
		return fmt.Errorf("account pool: discriminator mismatch")
	}
	dec := bin.NewBorshDecoder(data[8:])
	return dec.Decode(a)
}

// CoinCreatorFromData reads the coin creator without decoding the whole pool.
func CoinCreatorFromData(data []byte) (solana.PublicKey, error) {
	if len(data) < CoinCreatorOffset+32 {
		return solana.PublicKey{}, fmt.Errorf("account pool: %d bytes, need %d", len(data), CoinCreatorOffset+32)
	}
	return solana.PublicKeyFromBytes(data[CoinCreatorOffset : CoinCreatorOffset+32]), nil
}
