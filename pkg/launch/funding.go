package launch

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/autofill"
	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/confirm"
	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// fundingOverhead is the mixer's token account rent, which ends up with the
// sniper, plus two signature fees.
const fundingOverhead = constants.ATACreateFeeLamports + 2*5_000

// Sender compiles and lands one transaction. *txbuilder.Builder satisfies it.
type Sender interface {
	BuildTransaction(ctx context.Context, feePayer solana.PublicKey, tables map[solana.PublicKey]solana.PublicKeySlice, instructions ...solana.Instruction) (*solana.Transaction, error)
	SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, confirm.Outcome, error)
}

// Funding is one sniper's share: its buy plus the fee reserve.
type Funding struct {
	Sniper    solana.PublicKey `json:"sniper"`
	Buy       uint64           `json:"buy_lamports"`
	Lamports  uint64           `json:"lamports"`
	Mixer     solana.PublicKey `json:"mixer,omitempty"`
	Signature solana.Signature `json:"signature,omitempty"`
}

// PlanFunding splits total across snipers with wallet.SniperAmounts and adds
// the per-wallet fee reserve on top of each buy.
func PlanFunding(snipers []solana.PublicKey, total uint64, rng *rand.Rand) ([]Funding, error) {
	amounts, err := wallet.SniperAmounts(len(snipers), total, rng)
	if err != nil {
		return nil, err
	}
	out := make([]Funding, len(snipers))
	for i, s := range snipers {
		out[i] = Funding{Sniper: s, Buy: amounts[i], Lamports: amounts[i] + wallet.SniperFeeReserve}
	}
	return out, nil
}

// Funder moves SOL from one wallet to many through throwaway mixers.
type Funder struct {
	chain  Chain
	sender Sender
	filler *autofill.Filler
	wsol   solana.PublicKey
	log    zerolog.Logger
}

// NewFunder wires a funder.
func NewFunder(cfg config.Config, chain Chain, sender Sender, log zerolog.Logger) *Funder {
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}
	return &Funder{
		chain:  chain,
		sender: sender,
		filler: autofill.New(cfg),
		wsol:   cfg.Accounts.WSOLMint,
		log:    log.With().Str("component", "funding").Logger(),
	}
}

// FundSnipers sends each plan entry in its own transaction. A fresh mixer
// wallet gets a WSOL account funded by the funder, which is synced and then
// closed straight into the sniper, so the sniper never receives a direct
// transfer from the funder. Funder and mixer both sign. The funder's balance
// is checked against the whole plan before anything is sent; entries funded
// before a failure are returned with their signatures.
func (f *Funder) FundSnipers(ctx context.Context, funder wallet.Signer, plan []Funding) ([]Funding, error) {
	if funder == nil {
		return nil, types.ErrNilSigner
	}
	if len(plan) == 0 {
		return nil, types.ErrNoWallets
	}
	var need uint64
	for i, p := range plan {
		if p.Lamports == 0 {
			return nil, types.Validationf("fund snipers", "entry %d has zero lamports", i)
		}
		need += p.Lamports + fundingOverhead
	}
	bal, err := f.chain.GetBalance(ctx, funder.PublicKey())
	if err != nil {
		return nil, types.Transient("get balance", err)
	}
	if bal < need {
		return nil, types.Validationf("fund snipers", "funder %s holds %d lamports, plan needs %d", funder.PublicKey(), bal, need)
	}

	done := make([]Funding, 0, len(plan))
	for i, p := range plan {
		mixers, err := wallet.Generate(1)
		if err != nil {
			return done, types.Internal("fund snipers", err)
		}
		mixer := mixers[0]
		p.Mixer = mixer.PublicKey()
		sig, err := f.fundOne(ctx, funder, mixer, p)
		mixer.Zero()
		if err != nil {
			return done, fmt.Errorf("fund sniper %d (%s): %w", i, p.Sniper, err)
		}
		p.Signature = sig
		done = append(done, p)
		f.log.Info().Int("index", i).Str("sniper", p.Sniper.String()).Uint64("lamports", p.Lamports).Str("signature", sig.String()).Msg("sniper funded")
	}
	return done, nil
}

func (f *Funder) fundOne(ctx context.Context, funder wallet.Signer, mixer wallet.Local, p Funding) (solana.Signature, error) {
	createATA, mixerATA, err := f.filler.CreateATAIdempotent(funder.PublicKey(), mixer.PublicKey(), f.wsol)
	if err != nil {
		return solana.Signature{}, err
	}
	instrs := []solana.Instruction{createATA}
	instrs = append(instrs, f.filler.WrapNative(funder.PublicKey(), mixerATA, p.Lamports)...)
	instrs = append(instrs, f.filler.UnwrapNative(mixerATA, p.Sniper, mixer.PublicKey()))

	tx, err := f.sender.BuildTransaction(ctx, funder.PublicKey(), nil, instrs...)
	if err != nil {
		return solana.Signature{}, err
	}
	if err := txbuilder.SignTransaction(ctx, tx, funder, mixer); err != nil {
		return solana.Signature{}, err
	}
	sig, _, err := f.sender.SendAndConfirm(ctx, tx)
	return sig, err
}
