package autofill

import (
	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/pricing"
	"github.com/ninja0404/pump-bundler/pkg/program/pumpamm"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// AmmBuy fills a pump AMM buy spending about quoteIn lamports. The sequence is:
// compute budget, WSOL account, wrap max_quote_in, base token account,
// protocol fee WSOL account, buy, and (by default) close of the WSOL account.
//
// Returns the filled accounts and args, the instruction list, and the quote
// base_amount_out was derived from.
//
// Example:
//
//	pool, _ := f.FetchPool(ctx, rpc, mint)
//	_, args, instrs, quote, err := f.AmmBuy(user, pool, 100_000_000, 500)
func (f *Filler) AmmBuy(user solana.PublicKey, pool PoolState, quoteIn, slippageBps uint64, opts ...Option) (pumpamm.BuyAccounts, pumpamm.BuyArgs, []solana.Instruction, pricing.AmmBuy, error) {
	if err := types.ValidatePublicKey("user", user); err != nil {
		return pumpamm.BuyAccounts{}, pumpamm.BuyArgs{}, nil, pricing.AmmBuy{}, err
	}
	if quoteIn == 0 {
		return pumpamm.BuyAccounts{}, pumpamm.BuyArgs{}, nil, pricing.AmmBuy{}, types.ErrZeroAmount
	}
	quote, err := pricing.AmmBuyQuote(quoteIn, pool.Reserves, f.ammFees())
	if err != nil {
		return pumpamm.BuyAccounts{}, pumpamm.BuyArgs{}, nil, pricing.AmmBuy{}, err
	}
	maxQuoteIn, err := pricing.AmmMaxQuoteIn(quoteIn, slippageBps)
	if err != nil {
		return pumpamm.BuyAccounts{}, pumpamm.BuyArgs{}, nil, pricing.AmmBuy{}, err
	}
	if quote.BaseOut == 0 {
		return pumpamm.BuyAccounts{}, pumpamm.BuyArgs{}, nil, pricing.AmmBuy{}, types.ErrInsufficientLiquidity
	}
	options := applyOptions(Options{
		CloseQuoteATA:    true,
		ComputeUnitLimit: constants.ComputeUnitLimit,
		ComputeUnitPrice: constants.AmmComputeUnitPrice,
	}, opts)

	accts, prefix, err := f.swapAccounts(user, pool)
	if err != nil {
		return pumpamm.BuyAccounts{}, pumpamm.BuyArgs{}, nil, pricing.AmmBuy{}, err
	}
	args := pumpamm.BuyArgs{BaseAmountOut: quote.BaseOut, MaxQuoteAmountIn: maxQuoteIn}

	// WSOL account must exist and be funded before the base account is touched.
	instrs := []solana.Instruction{prefix[0]}
	instrs = append(instrs, f.WrapNative(user, accts.UserQuoteTokenAccount, maxQuoteIn)...)
	instrs = append(instrs, prefix[1:]...)

	ix, err := pumpamm.BuildBuy(accts, args)
	if err != nil {
		return pumpamm.BuyAccounts{}, pumpamm.BuyArgs{}, nil, pricing.AmmBuy{}, err
	}
	instrs = append(instrs, ix)
	if options.CloseQuoteATA {
		instrs = append(instrs, f.UnwrapNative(accts.UserQuoteTokenAccount, user, user))
	}
	instrs, err = f.finish(instrs, user, options)
	if err != nil {
		return pumpamm.BuyAccounts{}, pumpamm.BuyArgs{}, nil, pricing.AmmBuy{}, err
	}
	if err := preview(options, accts, args); err != nil {
		return pumpamm.BuyAccounts{}, pumpamm.BuyArgs{}, nil, pricing.AmmBuy{}, err
	}
	return accts, args, instrs, quote, nil
}

// AmmSell fills a pump AMM sell of baseIn tokens. min_quote_amount_out comes
// from the fee-less constant-product quote lowered by slippageBps, with a
// floor of one lamport for dust outputs.
func (f *Filler) AmmSell(user solana.PublicKey, pool PoolState, baseIn, slippageBps uint64, opts ...Option) (pumpamm.SellAccounts, pumpamm.SellArgs, []solana.Instruction, pricing.Quote, error) {
	if err := types.ValidatePublicKey("user", user); err != nil {
		return pumpamm.SellAccounts{}, pumpamm.SellArgs{}, nil, pricing.Quote{}, err
	}
	if err := types.ValidateSellParams(baseIn); err != nil {
		return pumpamm.SellAccounts{}, pumpamm.SellArgs{}, nil, pricing.Quote{}, err
	}
	quote, err := pricing.SellQuote(baseIn, pool.Reserves)
	if err != nil {
		return pumpamm.SellAccounts{}, pumpamm.SellArgs{}, nil, pricing.Quote{}, err
	}
	minOut, err := pricing.AmmMinQuoteOut(quote.AmountOut, slippageBps)
	if err != nil {
		return pumpamm.SellAccounts{}, pumpamm.SellArgs{}, nil, pricing.Quote{}, err
	}
	options := applyOptions(Options{
		ComputeUnitLimit: constants.ComputeUnitLimit,
		ComputeUnitPrice: constants.AmmComputeUnitPrice,
	}, opts)

	accts, prefix, err := f.swapAccounts(user, pool)
	if err != nil {
		return pumpamm.SellAccounts{}, pumpamm.SellArgs{}, nil, pricing.Quote{}, err
	}
	args := pumpamm.SellArgs{BaseAmountIn: baseIn, MinQuoteAmountOut: minOut}

	ix, err := pumpamm.BuildSell(accts, args)
	if err != nil {
		return pumpamm.SellAccounts{}, pumpamm.SellArgs{}, nil, pricing.Quote{}, err
	}
	instrs := append(prefix, ix)
	if options.CloseQuoteATA {
		instrs = append(instrs, f.UnwrapNative(accts.UserQuoteTokenAccount, user, user))
	}
	instrs, err = f.finish(instrs, user, options)
	if err != nil {
		return pumpamm.SellAccounts{}, pumpamm.SellArgs{}, nil, pricing.Quote{}, err
	}
	if err := preview(options, accts, args); err != nil {
		return pumpamm.SellAccounts{}, pumpamm.SellArgs{}, nil, pricing.Quote{}, err
	}
	return accts, args, instrs, quote, nil
}

// AmmBuyBalanceNeeded is the lamports a wallet must hold to run AmmBuy with
// quoteIn: the spend plus rent for one new token account.
func AmmBuyBalanceNeeded(quoteIn uint64) uint64 {
	return quoteIn + constants.ATACreateFeeLamports
}

// swapAccounts fills the 19 swap accounts and returns the three idempotent
// account creations the swap needs: user WSOL, user base, protocol fee WSOL.
func (f *Filler) swapAccounts(user solana.PublicKey, pool PoolState) (pumpamm.SwapAccounts, []solana.Instruction, error) {
	if err := types.ValidatePublicKeys(map[string]solana.PublicKey{"pool": pool.Address, "base_mint": pool.BaseMint, "coin_creator": pool.CoinCreator}); err != nil {
		return pumpamm.SwapAccounts{}, nil, err
	}
	wsol := f.cfg.Accounts.WSOLMint
	feeRecipient := f.cfg.Accounts.AmmProtocolFeeRecipient

	quoteIx, userQuote, err := f.CreateATAIdempotent(user, user, wsol)
	if err != nil {
		return pumpamm.SwapAccounts{}, nil, err
	}
	baseIx, userBase, err := f.CreateATAIdempotent(user, user, pool.BaseMint)
	if err != nil {
		return pumpamm.SwapAccounts{}, nil, err
	}
	feeIx, feeATA, err := f.CreateATAIdempotent(user, feeRecipient, wsol)
	if err != nil {
		return pumpamm.SwapAccounts{}, nil, err
	}
	vault, _, err := f.pda.AmmCreatorVault(pool.CoinCreator)
	if err != nil {
		return pumpamm.SwapAccounts{}, nil, err
	}
	vaultATA, _, err := f.pda.AmmCreatorVaultATA(pool.CoinCreator)
	if err != nil {
		return pumpamm.SwapAccounts{}, nil, err
	}

	accts := pumpamm.SwapAccounts{
		Pool:                             pool.Address,
		User:                             user,
		GlobalConfig:                     f.cfg.Accounts.AmmGlobalConfig,
		BaseMint:                         pool.BaseMint,
		QuoteMint:                        wsol,
		UserBaseTokenAccount:             userBase,
		UserQuoteTokenAccount:            userQuote,
		PoolBaseTokenAccount:             pool.BaseVault,
		PoolQuoteTokenAccount:            pool.QuoteVault,
		ProtocolFeeRecipient:             feeRecipient,
		ProtocolFeeRecipientTokenAccount: feeATA,
		BaseTokenProgram:                 f.cfg.Programs.Token,
		QuoteTokenProgram:                f.cfg.Programs.Token,
		SystemProgram:                    f.cfg.Programs.System,
		AssociatedTokenProgram:           f.cfg.Programs.AssociatedToken,
		EventAuthority:                   f.cfg.Accounts.AmmEventAuthority,
		Program:                          f.cfg.Programs.PumpAmm,
		CoinCreatorVaultAta:              vaultATA,
		CoinCreatorVaultAuthority:        vault,
	}
	return accts, []solana.Instruction{quoteIx, baseIx, feeIx}, nil
}

func (f *Filler) ammFees() pricing.AmmFees {
	return pricing.AmmFees{
		LPBps:       f.cfg.Fees.AmmLPBps,
		ProtocolBps: f.cfg.Fees.AmmProtocolBps,
		CreatorBps:  f.cfg.Fees.AmmCreatorBps,
	}
}
