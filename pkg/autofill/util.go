package autofill

import (
	"fmt"
	"math/rand"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/goccy/go-json"

	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// CreateATAIdempotent returns an instruction that creates owner's token
// account for mint unless it already exists, plus the account address.
func (f *Filler) CreateATAIdempotent(payer, owner, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	if err := types.ValidatePublicKeys(map[string]solana.PublicKey{"payer": payer, "owner": owner, "mint": mint}); err != nil {
		return nil, solana.PublicKey{}, err
	}
	ata, _, err := f.pda.ATA(owner, mint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(ata, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(f.cfg.Programs.System, false, false),
		solana.NewAccountMeta(f.cfg.Programs.Token, false, false),
	}
	// 1 = CreateIdempotent
	return solana.NewInstruction(f.cfg.Programs.AssociatedToken, metas, []byte{1}), ata, nil
}

// WrapNative moves lamports into a WSOL token account and syncs its balance.
func (f *Filler) WrapNative(from, wsolAccount solana.PublicKey, lamports uint64) []solana.Instruction {
	if lamports == 0 {
		return nil
	}
	return []solana.Instruction{
		system.NewTransferInstruction(lamports, from, wsolAccount).Build(),
		token.NewSyncNativeInstruction(wsolAccount).Build(),
	}
}

// UnwrapNative closes a WSOL token account, sending its lamports to destination.
func (f *Filler) UnwrapNative(account, destination, owner solana.PublicKey) solana.Instruction {
	return buildCloseAccount(account, destination, owner, f.cfg.Programs.Token)
}

// Transfer is a plain system transfer.
func (f *Filler) Transfer(from, to solana.PublicKey, lamports uint64) (solana.Instruction, error) {
	if lamports == 0 {
		return nil, types.ErrZeroAmount
	}
	if err := types.ValidatePublicKeys(map[string]solana.PublicKey{"from": from, "to": to}); err != nil {
		return nil, err
	}
	return system.NewTransferInstruction(lamports, from, to).Build(), nil
}

// FeeTransfer pays the launch fee on total to the configured transfer wallet.
// A fee that rounds to zero yields no instruction.
func (f *Filler) FeeTransfer(payer solana.PublicKey, total uint64) (solana.Instruction, uint64, error) {
	fee := bpsOf(total, f.cfg.Fees.TransferBps)
	if fee == 0 {
		return nil, 0, nil
	}
	ix, err := f.Transfer(payer, f.cfg.Accounts.TransferWallet, fee)
	return ix, fee, err
}

// Tip transfers lamports to a block-engine tip account. A zero account
// picks one of the configured tip accounts at random.
func (f *Filler) Tip(payer solana.PublicKey, lamports uint64, account solana.PublicKey) (solana.Instruction, error) {
	if account.IsZero() {
		account = f.RandomTipAccount()
	}
	return f.Transfer(payer, account, lamports)
}

// RandomTipAccount picks one configured tip account.
func (f *Filler) RandomTipAccount() solana.PublicKey {
	accounts := f.cfg.Relay.TipAccounts
	if len(accounts) == 0 {
		return solana.PublicKey{}
	}
	return accounts[rand.Intn(len(accounts))]
}

// ComputeBudget sets the unit limit and the per-unit price in micro-lamports.
func ComputeBudget(limit uint32, microLamports uint64) []solana.Instruction {
	if limit == 0 {
		limit = constants.ComputeUnitLimit
	}
	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(limit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(microLamports).Build(),
	}
}

// buildCloseAccount constructs a CloseAccount instruction for any Token Program (SPL or Token-2022).
func buildCloseAccount(account, destination, owner, tokenProgram solana.PublicKey) solana.Instruction {
	// CloseAccount instruction discriminator = 9
	data := []byte{9}
	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(account, true, false),
		solana.NewAccountMeta(destination, true, false),
		solana.NewAccountMeta(owner, false, true),
	}
	return solana.NewInstruction(tokenProgram, metas, data)
}

func (f *Filler) finish(instrs []solana.Instruction, payer solana.PublicKey, o *Options) ([]solana.Instruction, error) {
	if o.ComputeUnitPrice > 0 || o.ComputeUnitLimit > 0 {
		instrs = append(ComputeBudget(o.ComputeUnitLimit, o.ComputeUnitPrice), instrs...)
	}
	if o.JitoTipLamports > 0 {
		tip, err := f.Tip(payer, o.JitoTipLamports, o.JitoTipAccount)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, tip)
	}
	return instrs, nil
}

func preview(o *Options, accounts, args any) error {
	if o.Preview == nil {
		return nil
	}
	err := json.NewEncoder(o.Preview).Encode(struct {
		Accounts any `json:"accounts"`
		Args     any `json:"args"`
	}{accounts, args})
	if err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	return nil
}

func bpsOf(amount, bps uint64) uint64 {
	return amount/constants.BasisPointsDivisor*bps + amount%constants.BasisPointsDivisor*bps/constants.BasisPointsDivisor
}
