// Package pump holds instruction and account bindings for the pump.fun
// bonding-curve program. Instructions are addressed to the Program account
// they carry, so a configured program id flows through unchanged.
package pump

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// CreateDiscriminator prefixes the create instruction data.
var CreateDiscriminator = []byte{0x18, 0x1e, 0xc8, 0x28, 0x05, 0x1c, 0x07, 0x77}

// CreateArgs are the Borsh-encoded create arguments.
type CreateArgs struct {
	Name    string           `bin:"name"`
	Symbol  string           `bin:"symbol"`
	Uri     string           `bin:"uri"`
	Creator solana.PublicKey `bin:"creator"`
}

// CreateAccounts lists the 14 create accounts in program order.
type CreateAccounts struct {
	Mint                   solana.PublicKey
	MintAuthority          solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	Global                 solana.PublicKey
	MplTokenMetadata       solana.PublicKey
	Metadata               solana.PublicKey
	User                   solana.PublicKey
	SystemProgram          solana.PublicKey
	TokenProgram           solana.PublicKey
	AssociatedTokenProgram solana.PublicKey
	Rent                   solana.PublicKey
	EventAuthority         solana.PublicKey
	Program                solana.PublicKey
}

// ToAccountMetas returns the metas in program order. Mint and user sign.
func (a CreateAccounts) ToAccountMetas() []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, 0, 14)
	metas = append(metas, solana.NewAccountMeta(a.Mint, true, true))
	metas = append(metas, solana.NewAccountMeta(a.MintAuthority, false, false))
	metas = append(metas, solana.NewAccountMeta(a.BondingCurve, true, false))
	metas = append(metas, solana.NewAccountMeta(a.AssociatedBondingCurve, true, false))
	metas = append(metas, solana.NewAccountMeta(a.Global, false, false))
	metas = append(metas, solana.NewAccountMeta(a.MplTokenMetadata, false, false))
	metas = append(metas, solana.NewAccountMeta(a.Metadata, true, false))
	metas = append(metas, solana.NewAccountMeta(a.User, true, true))
	metas = append(metas, solana.NewAccountMeta(a.SystemProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.TokenProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.AssociatedTokenProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.Rent, false, false))
	metas = append(metas, solana.NewAccountMeta(a.EventAuthority, false, false))
	metas = append(metas, solana.NewAccountMeta(a.Program, false, false))
	return metas
}

// BuildCreate encodes a create instruction.
func BuildCreate(accounts CreateAccounts, args CreateArgs) (solana.Instruction, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 128))
	buf.Write(CreateDiscriminator)
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	data := buf.Bytes()
	return solana.NewInstruction(accounts.Program, accounts.ToAccountMetas(), data), nil
}

// BuyDiscriminator prefixes the buy instruction data.
var BuyDiscriminator = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}

// BuyArgs buys Amount tokens for at most MaxSolCost lamports.
type BuyArgs struct {
	Amount     uint64 `bin:"amount"`
	MaxSolCost uint64 `bin:"max_sol_cost"`
}

// BuyAccounts lists the 12 buy accounts in program order.
type BuyAccounts struct {
	Global                 solana.PublicKey
	FeeRecipient           solana.PublicKey
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	AssociatedUser         solana.PublicKey
	User                   solana.PublicKey
	SystemProgram          solana.PublicKey
	TokenProgram           solana.PublicKey
	CreatorVault           solana.PublicKey
	EventAuthority         solana.PublicKey
	Program                solana.PublicKey
}

// ToAccountMetas returns the metas in program order. Only the user signs.
func (a BuyAccounts) ToAccountMetas() []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, 0, 12)
	metas = append(metas, solana.NewAccountMeta(a.Global, false, false))
	metas = append(metas, solana.NewAccountMeta(a.FeeRecipient, true, false))
	metas = append(metas, solana.NewAccountMeta(a.Mint, true, false))
	metas = append(metas, solana.NewAccountMeta(a.BondingCurve, true, false))
	metas = append(metas, solana.NewAccountMeta(a.AssociatedBondingCurve, true, false))
	metas = append(metas, solana.NewAccountMeta(a.AssociatedUser, true, false))
	metas = append(metas, solana.NewAccountMeta(a.User, true, true))
	metas = append(metas, solana.NewAccountMeta(a.SystemProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.TokenProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.CreatorVault, true, false))
	metas = append(metas, solana.NewAccountMeta(a.EventAuthority, false, false))
	metas = append(metas, solana.NewAccountMeta(a.Program, false, false))
	return metas
}

// BuildBuy encodes a buy instruction.
func BuildBuy(accounts BuyAccounts, args BuyArgs) (solana.Instruction, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 24))
	buf.Write(BuyDiscriminator)
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	data := buf.Bytes()
	return solana.NewInstruction(accounts.Program, accounts.ToAccountMetas(), data), nil
}

// SellDiscriminator prefixes the sell instruction data.
var SellDiscriminator = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}

// SellArgs sells Amount tokens for at least MinSolOutput lamports.
type SellArgs struct {
	Amount       uint64 `bin:"amount"`
	MinSolOutput uint64 `bin:"min_sol_output"`
}

// SellAccounts differs from BuyAccounts in order: the creator vault comes
// before the token program.
type SellAccounts struct {
	Global                 solana.PublicKey
	FeeRecipient           solana.PublicKey
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	AssociatedUser         solana.PublicKey
	User                   solana.PublicKey
	SystemProgram          solana.PublicKey
	CreatorVault           solana.PublicKey
	TokenProgram           solana.PublicKey
	EventAuthority         solana.PublicKey
	Program                solana.PublicKey
}

// ToAccountMetas returns the metas in program order. Only the user signs.
func (a SellAccounts) ToAccountMetas() []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, 0, 12)
	metas = append(metas, solana.NewAccountMeta(a.Global, false, false))
	metas = append(metas, solana.NewAccountMeta(a.FeeRecipient, true, false))
	metas = append(metas, solana.NewAccountMeta(a.Mint, true, false))
	metas = append(metas, solana.NewAccountMeta(a.BondingCurve, true, false))
	metas = append(metas, solana.NewAccountMeta(a.AssociatedBondingCurve, true, false))
	metas = append(metas, solana.NewAccountMeta(a.AssociatedUser, true, false))
	metas = append(metas, solana.NewAccountMeta(a.User, true, true))
	metas = append(metas, solana.NewAccountMeta(a.SystemProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.CreatorVault, true, false))
	metas = append(metas, solana.NewAccountMeta(a.TokenProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.EventAuthority, false, false))
	metas = append(metas, solana.NewAccountMeta(a.Program, false, false))
	return metas
}

// BuildSell encodes a sell instruction.
func BuildSell(accounts SellAccounts, args SellArgs) (solana.Instruction, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 24))
	buf.Write(SellDiscriminator)
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	data := buf.Bytes()
	return solana.NewInstruction(accounts.Program, accounts.ToAccountMetas(), data), nil
}

// ExtendAccountDiscriminator prefixes extend_account, which grows a legacy
// curve account to the current layout.
var ExtendAccountDiscriminator = []byte{234, 102, 194, 203, 150, 72, 62, 229}

// ExtendAccountArgs is empty; the instruction takes no arguments.
type ExtendAccountArgs struct{}

// ExtendAccountAccounts names the account to grow and the paying user.
type ExtendAccountAccounts struct {
	Account        solana.PublicKey
	User           solana.PublicKey
	SystemProgram  solana.PublicKey
	EventAuthority solana.PublicKey
	Program        solana.PublicKey
}

// ToAccountMetas returns the metas in program order.
func (a ExtendAccountAccounts) ToAccountMetas() []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, 0, 5)
	metas = append(metas, solana.NewAccountMeta(a.Account, true, false))
	metas = append(metas, solana.NewAccountMeta(a.User, true, true))
	metas = append(metas, solana.NewAccountMeta(a.SystemProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.EventAuthority, false, false))
	metas = append(metas, solana.NewAccountMeta(a.Program, false, false))
	return metas
}

// BuildExtendAccount encodes an extend_account instruction.
func BuildExtendAccount(accounts ExtendAccountAccounts, args ExtendAccountArgs) (solana.Instruction, error) {
	data := append([]byte(nil), ExtendAccountDiscriminator...)
	return solana.NewInstruction(accounts.Program, accounts.ToAccountMetas(), data), nil
}
