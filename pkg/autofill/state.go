package autofill

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/ninja0404/pump-bundler/pkg/pricing"
	"github.com/ninja0404/pump-bundler/pkg/program/pump"
	"github.com/ninja0404/pump-bundler/pkg/program/pumpamm"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// bondingCurveSize is discriminator + five u64 + complete + creator.
const bondingCurveSize = 8 + 5*8 + 1 + 32

// AccountReader is the batch account lookup state fetches go through.
// *rpc.Client satisfies it.
type AccountReader interface {
	GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) ([]*solanarpc.Account, error)
}

// CurveState is a decoded bonding curve.
type CurveState struct {
	Mint        solana.PublicKey
	Address     solana.PublicKey
	Curve       pump.BondingCurve
	NeedsExtend bool
}

// BuyReserves orients the curve for a buy: SOL in, tokens out.
func (c CurveState) BuyReserves() pricing.Reserves {
	return pricing.Reserves{Base: c.Curve.VirtualSolReserves, Quote: c.Curve.VirtualTokenReserves}
}

// SellReserves orients the curve for a sell: tokens in, SOL out.
func (c CurveState) SellReserves() pricing.Reserves {
	return pricing.Reserves{Base: c.Curve.VirtualTokenReserves, Quote: c.Curve.VirtualSolReserves}
}

// PoolState is a canonical pump AMM pool with its vault balances.
type PoolState struct {
	Address     solana.PublicKey
	BaseMint    solana.PublicKey
	QuoteMint   solana.PublicKey
	BaseVault   solana.PublicKey
	QuoteVault  solana.PublicKey
	CoinCreator solana.PublicKey
	// Reserves is (pool tokens, pool SOL).
	Reserves pricing.Reserves
}

// FetchCurve loads the bonding curve for mint.
func (f *Filler) FetchCurve(ctx context.Context, rpc AccountReader, mint solana.PublicKey) (CurveState, error) {
	if rpc == nil {
		return CurveState{}, types.ErrNilRPC
	}
	addr, _, err := f.pda.BondingCurve(mint)
	if err != nil {
		return CurveState{}, err
	}
	accs, err := rpc.GetMultipleAccounts(ctx, addr)
	if err != nil {
		return CurveState{}, err
	}
	data := accountData(accs, 0)
	if data == nil {
		return CurveState{}, fmt.Errorf("bonding curve %s for mint %s: %w", addr, mint, types.ErrBondingCurveNotFound)
	}
	state := CurveState{Mint: mint, Address: addr}
	if len(data) < bondingCurveSize {
		state.NeedsExtend = true
		padded := make([]byte, bondingCurveSize)
		copy(padded, data)
		data = padded
	}
	if err := state.Curve.Unmarshal(data); err != nil {
		return CurveState{}, fmt.Errorf("decode bonding curve %s: %w", addr, err)
	}
	if state.Curve.VirtualSolReserves == 0 || state.Curve.VirtualTokenReserves == 0 {
		return CurveState{}, fmt.Errorf("bonding curve %s: %w", addr, types.ErrZeroReserves)
	}
	return state, nil
}

// FetchPool loads the canonical pool for mint, its coin creator, and the
// balances of both vaults.
func (f *Filler) FetchPool(ctx context.Context, rpc AccountReader, mint solana.PublicKey) (PoolState, error) {
	if rpc == nil {
		return PoolState{}, types.ErrNilRPC
	}
	state := PoolState{BaseMint: mint, QuoteMint: f.cfg.Accounts.WSOLMint}
	var err error
	if state.Address, _, err = f.pda.CanonicalPool(mint); err != nil {
		return PoolState{}, err
	}
	if state.BaseVault, _, err = f.pda.ATA(state.Address, mint); err != nil {
		return PoolState{}, err
	}
	if state.QuoteVault, _, err = f.pda.ATA(state.Address, state.QuoteMint); err != nil {
		return PoolState{}, err
	}

	accs, err := rpc.GetMultipleAccounts(ctx, state.Address, state.BaseVault, state.QuoteVault)
	if err != nil {
		return PoolState{}, err
	}
	poolData, baseData, quoteData := accountData(accs, 0), accountData(accs, 1), accountData(accs, 2)
	if poolData == nil || baseData == nil || quoteData == nil {
		return PoolState{}, fmt.Errorf("pool %s for mint %s: %w", state.Address, mint, types.ErrPoolNotFound)
	}
	if state.CoinCreator, err = pumpamm.CoinCreatorFromData(poolData); err != nil {
		return PoolState{}, fmt.Errorf("decode pool %s: %w", state.Address, err)
	}
	if state.Reserves.Base, err = tokenAmount(baseData); err != nil {
		return PoolState{}, fmt.Errorf("decode pool base vault %s: %w", state.BaseVault, err)
	}
	if state.Reserves.Quote, err = tokenAmount(quoteData); err != nil {
		return PoolState{}, fmt.Errorf("decode pool quote vault %s: %w", state.QuoteVault, err)
	}
	if state.Reserves.Base == 0 || state.Reserves.Quote == 0 {
		return PoolState{}, fmt.Errorf("pool %s: %w", state.Address, types.ErrZeroReserves)
	}
	return state, nil
}

// FetchTokenBalance returns the amount held by a token account, 0 if it does not exist.
func FetchTokenBalance(ctx context.Context, rpc AccountReader, account solana.PublicKey) (uint64, error) {
	if rpc == nil {
		return 0, types.ErrNilRPC
	}
	accs, err := rpc.GetMultipleAccounts(ctx, account)
	if err != nil {
		return 0, err
	}
	data := accountData(accs, 0)
	if data == nil {
		return 0, nil
	}
	return tokenAmount(data)
}

func tokenAmount(data []byte) (uint64, error) {
	var acc token.Account
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return 0, err
	}
	return acc.Amount, nil
}

func accountData(accs []*solanarpc.Account, i int) []byte {
	if i >= len(accs) || accs[i] == nil || accs[i].Data == nil {
		return nil
	}
	data := accs[i].Data.GetBinary()
	if len(data) == 0 {
		return nil
	}
	return data
}
