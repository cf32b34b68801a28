package autofill

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/pda"
	"github.com/ninja0404/pump-bundler/pkg/pricing"
	"github.com/ninja0404/pump-bundler/pkg/program/pump"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

const (
	MaxNameLen   = 32
	MaxSymbolLen = 10
)

// Filler fills pump and pump AMM instructions from a config and the
// addresses it derives. It does no I/O; state it needs is passed in.
type Filler struct {
	cfg config.Config
	pda pda.Resolver
}

// New returns a Filler bound to cfg.
func New(cfg config.Config) *Filler {
	return &Filler{cfg: cfg, pda: pda.NewResolver(cfg)}
}

// Resolver exposes the address resolver the filler derives with.
func (f *Filler) Resolver() pda.Resolver {
	return f.pda
}

// CreateParams is the token identity written by the create instruction.
type CreateParams struct {
	Name   string
	Symbol string
	URI    string
}

// Validate checks byte lengths the program enforces.
func (p CreateParams) Validate() error {
	switch {
	case p.Name == "":
		return types.NewValidationError("name", "is required")
	case len(p.Name) > MaxNameLen:
		return types.NewValidationError("name", fmt.Sprintf("must be at most %d bytes, got %d", MaxNameLen, len(p.Name)))
	case p.Symbol == "":
		return types.NewValidationError("symbol", "is required")
	case len(p.Symbol) > MaxSymbolLen:
		return types.NewValidationError("symbol", fmt.Sprintf("must be at most %d bytes, got %d", MaxSymbolLen, len(p.Symbol)))
	case p.URI == "":
		return types.NewValidationError("uri", "is required")
	}
	return nil
}

// Create fills the pump create instruction. The mint keypair and the
// deployer both sign; the deployer becomes the coin creator.
//
// Example:
//
//	accts, args, ix, err := f.Create(deployer, mint, autofill.CreateParams{Name: "My Token", Symbol: "MTK", URI: uri})
func (f *Filler) Create(deployer, mint solana.PublicKey, p CreateParams, opts ...Option) (pump.CreateAccounts, pump.CreateArgs, solana.Instruction, error) {
	if err := types.ValidatePublicKeys(map[string]solana.PublicKey{"deployer": deployer, "mint": mint}); err != nil {
		return pump.CreateAccounts{}, pump.CreateArgs{}, nil, err
	}
	if err := p.Validate(); err != nil {
		return pump.CreateAccounts{}, pump.CreateArgs{}, nil, err
	}
	options := applyOptions(Options{}, opts)

	accts := pump.CreateAccounts{
		Mint:                   mint,
		MintAuthority:          f.cfg.Accounts.MintAuthority,
		Global:                 f.cfg.Accounts.Global,
		MplTokenMetadata:       f.cfg.Programs.Metadata,
		User:                   deployer,
		SystemProgram:          f.cfg.Programs.System,
		TokenProgram:           f.cfg.Programs.Token,
		AssociatedTokenProgram: f.cfg.Programs.AssociatedToken,
		Rent:                   solana.SysVarRentPubkey,
		EventAuthority:         f.cfg.Accounts.EventAuthority,
		Program:                f.cfg.Programs.Pump,
	}
	var err error
	if accts.BondingCurve, _, err = f.pda.BondingCurve(mint); err != nil {
		return pump.CreateAccounts{}, pump.CreateArgs{}, nil, err
	}
	if accts.AssociatedBondingCurve, _, err = f.pda.AssociatedBondingCurve(mint); err != nil {
		return pump.CreateAccounts{}, pump.CreateArgs{}, nil, err
	}
	if accts.Metadata, _, err = f.pda.Metadata(mint); err != nil {
		return pump.CreateAccounts{}, pump.CreateArgs{}, nil, err
	}

	args := pump.CreateArgs{Name: p.Name, Symbol: p.Symbol, Uri: p.URI, Creator: deployer}
	ix, err := pump.BuildCreate(accts, args)
	if err != nil {
		return pump.CreateAccounts{}, pump.CreateArgs{}, nil, err
	}
	if err := preview(options, accts, args); err != nil {
		return pump.CreateAccounts{}, pump.CreateArgs{}, nil, err
	}
	return accts, args, ix, nil
}

// Buy fills a bonding-curve buy of tokenAmount tokens for about solIn
// lamports. The instruction list creates the buyer's token account first.
// max_sol_cost is solIn raised by slippageBps.
//
// Parameters:
//   - user: buyer (fee payer and signer)
//   - mint: token mint
//   - creator: coin creator recorded on the curve; its vault receives creator fees
//   - tokenAmount: tokens to receive, in base units
//   - solIn: quoted lamport cost
//   - slippageBps: tolerated increase over solIn
func (f *Filler) Buy(user, mint, creator solana.PublicKey, tokenAmount, solIn, slippageBps uint64, opts ...Option) (pump.BuyAccounts, pump.BuyArgs, []solana.Instruction, error) {
	if err := types.ValidatePublicKeys(map[string]solana.PublicKey{"user": user, "mint": mint, "creator": creator}); err != nil {
		return pump.BuyAccounts{}, pump.BuyArgs{}, nil, err
	}
	maxSol, err := pricing.MaxIn(solIn, slippageBps)
	if err != nil {
		return pump.BuyAccounts{}, pump.BuyArgs{}, nil, err
	}
	if err := types.ValidateBuyParams(tokenAmount, maxSol); err != nil {
		return pump.BuyAccounts{}, pump.BuyArgs{}, nil, err
	}
	options := applyOptions(Options{}, opts)

	curve, err := f.curveAccounts(user, mint, creator)
	if err != nil {
		return pump.BuyAccounts{}, pump.BuyArgs{}, nil, err
	}
	accts := pump.BuyAccounts{
		Global:                 curve.Global,
		FeeRecipient:           curve.FeeRecipient,
		Mint:                   mint,
		BondingCurve:           curve.BondingCurve,
		AssociatedBondingCurve: curve.AssociatedBondingCurve,
		AssociatedUser:         curve.AssociatedUser,
		User:                   user,
		SystemProgram:          f.cfg.Programs.System,
		TokenProgram:           f.cfg.Programs.Token,
		CreatorVault:           curve.CreatorVault,
		EventAuthority:         f.cfg.Accounts.EventAuthority,
		Program:                f.cfg.Programs.Pump,
	}
	args := pump.BuyArgs{Amount: tokenAmount, MaxSolCost: maxSol}

	ataIx, _, err := f.CreateATAIdempotent(user, user, mint)
	if err != nil {
		return pump.BuyAccounts{}, pump.BuyArgs{}, nil, err
	}
	ix, err := pump.BuildBuy(accts, args)
	if err != nil {
		return pump.BuyAccounts{}, pump.BuyArgs{}, nil, err
	}
	instrs, err := f.finish([]solana.Instruction{ataIx, ix}, user, options)
	if err != nil {
		return pump.BuyAccounts{}, pump.BuyArgs{}, nil, err
	}
	if err := preview(options, accts, args); err != nil {
		return pump.BuyAccounts{}, pump.BuyArgs{}, nil, err
	}
	return accts, args, instrs, nil
}

// Sell fills a bonding-curve sell of tokenAmount tokens. min_sol_output is
// expectedSol lowered by slippageBps. When the curve predates the creator
// field, an extend_account instruction runs first.
func (f *Filler) Sell(user solana.PublicKey, curve CurveState, tokenAmount, expectedSol, slippageBps uint64, opts ...Option) (pump.SellAccounts, pump.SellArgs, []solana.Instruction, error) {
	if err := types.ValidatePublicKeys(map[string]solana.PublicKey{"user": user, "mint": curve.Mint, "creator": curve.Curve.Creator}); err != nil {
		return pump.SellAccounts{}, pump.SellArgs{}, nil, err
	}
	if err := types.ValidateSellParams(tokenAmount); err != nil {
		return pump.SellAccounts{}, pump.SellArgs{}, nil, err
	}
	minSol, err := pricing.MinOut(expectedSol, slippageBps)
	if err != nil {
		return pump.SellAccounts{}, pump.SellArgs{}, nil, err
	}
	options := applyOptions(Options{}, opts)

	ca, err := f.curveAccounts(user, curve.Mint, curve.Curve.Creator)
	if err != nil {
		return pump.SellAccounts{}, pump.SellArgs{}, nil, err
	}
	accts := pump.SellAccounts{
		Global:                 ca.Global,
		FeeRecipient:           ca.FeeRecipient,
		Mint:                   curve.Mint,
		BondingCurve:           ca.BondingCurve,
		AssociatedBondingCurve: ca.AssociatedBondingCurve,
		AssociatedUser:         ca.AssociatedUser,
		User:                   user,
		SystemProgram:          f.cfg.Programs.System,
		CreatorVault:           ca.CreatorVault,
		TokenProgram:           f.cfg.Programs.Token,
		EventAuthority:         f.cfg.Accounts.EventAuthority,
		Program:                f.cfg.Programs.Pump,
	}
	args := pump.SellArgs{Amount: tokenAmount, MinSolOutput: minSol}

	var instrs []solana.Instruction
	if curve.NeedsExtend {
		ext, err := f.ExtendCurve(user, ca.BondingCurve)
		if err != nil {
			return pump.SellAccounts{}, pump.SellArgs{}, nil, err
		}
		instrs = append(instrs, ext)
	}
	ix, err := pump.BuildSell(accts, args)
	if err != nil {
		return pump.SellAccounts{}, pump.SellArgs{}, nil, err
	}
	instrs, err = f.finish(append(instrs, ix), user, options)
	if err != nil {
		return pump.SellAccounts{}, pump.SellArgs{}, nil, err
	}
	if err := preview(options, accts, args); err != nil {
		return pump.SellAccounts{}, pump.SellArgs{}, nil, err
	}
	return accts, args, instrs, nil
}

// ExtendCurve grows a legacy bonding curve account to the current layout.
func (f *Filler) ExtendCurve(user, bondingCurve solana.PublicKey) (solana.Instruction, error) {
	return pump.BuildExtendAccount(pump.ExtendAccountAccounts{
		Account:        bondingCurve,
		User:           user,
		SystemProgram:  f.cfg.Programs.System,
		EventAuthority: f.cfg.Accounts.EventAuthority,
		Program:        f.cfg.Programs.Pump,
	}, pump.ExtendAccountArgs{})
}

type curveAccounts struct {
	Global                 solana.PublicKey
	FeeRecipient           solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	AssociatedUser         solana.PublicKey
	CreatorVault           solana.PublicKey
}

func (f *Filler) curveAccounts(user, mint, creator solana.PublicKey) (curveAccounts, error) {
	out := curveAccounts{
		Global:       f.cfg.Accounts.Global,
		FeeRecipient: f.cfg.Accounts.FeeRecipient,
	}
	var err error
	if out.BondingCurve, _, err = f.pda.BondingCurve(mint); err != nil {
		return out, err
	}
	if out.AssociatedBondingCurve, _, err = f.pda.AssociatedBondingCurve(mint); err != nil {
		return out, err
	}
	if out.AssociatedUser, _, err = f.pda.ATA(user, mint); err != nil {
		return out, err
	}
	if out.CreatorVault, _, err = f.pda.CreatorVault(creator); err != nil {
		return out, err
	}
	return out, nil
}
