package bundle

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/autofill"
	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// Kind tells a creation transaction from a buy group.
type Kind string

const (
	KindCreation Kind = "creation"
	KindBuy      Kind = "buy"
)

// Unit is one signed transaction of the bundle.
type Unit struct {
	Kind    Kind
	Label   string
	Tx      *solana.Transaction
	Signers []solana.PublicKey
}

// Buyer is a wallet with its simulated buy.
type Buyer struct {
	Wallet wallet.Signer
	Quote  WalletQuote
}

// Creation turns unit 0 into the token launch: create, the deployer's token
// account and the dev buy, signed by the deployer and the mint key.
type Creation struct {
	Deployer wallet.Signer
	Mint     wallet.Signer
	Params   autofill.CreateParams
	DevBuy   WalletQuote
}

// BuildInput is everything one bundle needs. Groups come from Plan and
// their quotes from Simulate.
type BuildInput struct {
	Mint        solana.PublicKey
	Creator     solana.PublicKey
	Groups      [][]Buyer
	Create      *Creation
	SlippageBps uint64
	Blockhash   solana.Hash
	Table       map[solana.PublicKey]solana.PublicKeySlice
	TipLamports uint64
	TipAccount  solana.PublicKey
}

// Assembler compiles and signs bundle transactions.
type Assembler struct {
	filler *autofill.Filler
	limits config.Limits
	log    zerolog.Logger
}

// NewAssembler builds an assembler over cfg.
func NewAssembler(cfg config.Config, log zerolog.Logger) *Assembler {
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}
	return &Assembler{filler: autofill.New(cfg), limits: cfg.Limits, log: log}
}

// Build returns the units in bundle order: the creation unit when requested,
// then one unit per group. The launch fee on the total SOL spent and the
// relay tip ride in the first buy group, paid by its first wallet; with no
// buy groups they ride in the creation unit.
func (a *Assembler) Build(ctx context.Context, in BuildInput) ([]Unit, error) {
	if err := a.check(in); err != nil {
		return nil, err
	}
	creator := in.Creator
	if in.Create != nil {
		creator = in.Create.Deployer.PublicKey()
	}

	total := uint64(0)
	if in.Create != nil {
		total += in.Create.DevBuy.SolIn
	}
	for _, g := range in.Groups {
		for _, b := range g {
			total += b.Quote.SolIn
		}
	}

	var units []Unit
	if in.Create != nil {
		instrs, err := a.creation(in)
		if err != nil {
			return nil, err
		}
		if len(in.Groups) == 0 {
			if instrs, err = a.appendFees(instrs, in.Create.Deployer.PublicKey(), total, in); err != nil {
				return nil, err
			}
		}
		u, err := a.compile(ctx, in, KindCreation, string(KindCreation), in.Create.Deployer.PublicKey(), []wallet.Signer{in.Create.Deployer, in.Create.Mint}, instrs)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}

	for gi, group := range in.Groups {
		payer := group[0].Wallet.PublicKey()
		var instrs []solana.Instruction
		signers := make([]wallet.Signer, 0, len(group))
		for _, b := range group {
			user := b.Wallet.PublicKey()
			_, _, ixs, err := a.filler.Buy(user, in.Mint, creator, b.Quote.TokensOut, b.Quote.SolIn, in.SlippageBps)
			if err != nil {
				return nil, fmt.Errorf("group %d wallet %s: %w", gi, user, err)
			}
			instrs = append(instrs, ixs...)
			signers = append(signers, b.Wallet)
		}
		if gi == 0 {
			var err error
			if instrs, err = a.appendFees(instrs, payer, total, in); err != nil {
				return nil, err
			}
		}
		u, err := a.compile(ctx, in, KindBuy, fmt.Sprintf("buy #%d", gi), payer, signers, instrs)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	a.log.Debug().Int("units", len(units)).Uint64("total_sol", total).Msg("bundle assembled")
	return units, nil
}

// Transactions strips units down to what the relay takes.
func Transactions(units []Unit) []*solana.Transaction {
	out := make([]*solana.Transaction, len(units))
	for i, u := range units {
		out[i] = u.Tx
	}
	return out
}

func (a *Assembler) check(in BuildInput) error {
	if in.Mint.IsZero() {
		return types.Validation("bundle build", "mint is required")
	}
	if in.Create == nil && in.Creator.IsZero() {
		return types.Validation("bundle build", "creator is required without a creation unit")
	}
	if in.Create != nil && (in.Create.Deployer == nil || in.Create.Mint == nil) {
		return types.Validation("bundle build", "creation needs deployer and mint signers")
	}
	if in.Create != nil && !in.Create.Mint.PublicKey().Equals(in.Mint) {
		return types.Validationf("bundle build", "mint signer %s does not match mint %s", in.Create.Mint.PublicKey(), in.Mint)
	}
	if in.Create == nil && len(in.Groups) == 0 {
		return types.ErrNoWallets
	}
	if len(in.Groups) > a.limits.MaxUnits {
		return types.Validationf("bundle build", "%d groups exceeds %d units", len(in.Groups), a.limits.MaxUnits)
	}
	for i, g := range in.Groups {
		if len(g) == 0 || len(g) > a.limits.MaxPerUnit {
			return types.Validationf("bundle build", "group %d has %d wallets, want 1..%d", i, len(g), a.limits.MaxPerUnit)
		}
		for _, b := range g {
			if b.Wallet == nil {
				return types.ErrNilSigner
			}
		}
	}
	return nil
}

func (a *Assembler) creation(in BuildInput) ([]solana.Instruction, error) {
	deployer := in.Create.Deployer.PublicKey()
	_, _, create, err := a.filler.Create(deployer, in.Mint, in.Create.Params)
	if err != nil {
		return nil, fmt.Errorf("creation: %w", err)
	}
	instrs := []solana.Instruction{create}
	if in.Create.DevBuy.SolIn > 0 {
		_, _, buy, err := a.filler.Buy(deployer, in.Mint, deployer, in.Create.DevBuy.TokensOut, in.Create.DevBuy.SolIn, in.SlippageBps)
		if err != nil {
			return nil, fmt.Errorf("creation dev buy: %w", err)
		}
		instrs = append(instrs, buy...)
	}
	return instrs, nil
}

func (a *Assembler) appendFees(instrs []solana.Instruction, payer solana.PublicKey, total uint64, in BuildInput) ([]solana.Instruction, error) {
	fee, _, err := a.filler.FeeTransfer(payer, total)
	if err != nil {
		return nil, fmt.Errorf("launch fee: %w", err)
	}
	if fee != nil {
		instrs = append(instrs, fee)
	}
	if in.TipLamports > 0 {
		tip, err := a.filler.Tip(payer, in.TipLamports, in.TipAccount)
		if err != nil {
			return nil, fmt.Errorf("relay tip: %w", err)
		}
		instrs = append(instrs, tip)
	}
	return instrs, nil
}

func (a *Assembler) compile(ctx context.Context, in BuildInput, kind Kind, label string, payer solana.PublicKey, signers []wallet.Signer, instrs []solana.Instruction) (Unit, error) {
	tx, err := txbuilder.Compile(in.Blockhash, payer, in.Table, instrs...)
	if err != nil {
		return Unit{}, fmt.Errorf("%s: %w", label, err)
	}
	if err := txbuilder.SignTransaction(ctx, tx, signers...); err != nil {
		return Unit{}, fmt.Errorf("%s: %w", label, err)
	}
	keys := make([]solana.PublicKey, len(signers))
	for i, s := range signers {
		keys[i] = s.PublicKey()
	}
	return Unit{Kind: kind, Label: label, Tx: tx, Signers: keys}, nil
}
