// Package pumpamm holds bindings for the pump AMM program that graduated
// pump.fun mints trade on.
package pumpamm

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// BuyDiscriminator prefixes the AMM buy instruction data.
var BuyDiscriminator = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}

// BuyArgs buys BaseAmountOut tokens for at most MaxQuoteAmountIn lamports.
type BuyArgs struct {
	BaseAmountOut    uint64 `bin:"base_amount_out"`
	MaxQuoteAmountIn uint64 `bin:"max_quote_amount_in"`
}

// SwapAccounts is the account list shared by buy and sell.
type SwapAccounts struct {
	Pool                             solana.PublicKey
	User                             solana.PublicKey
	GlobalConfig                     solana.PublicKey
	BaseMint                         solana.PublicKey
	QuoteMint                        solana.PublicKey
	UserBaseTokenAccount             solana.PublicKey
	UserQuoteTokenAccount            solana.PublicKey
	PoolBaseTokenAccount             solana.PublicKey
	PoolQuoteTokenAccount            solana.PublicKey
	ProtocolFeeRecipient             solana.PublicKey
	ProtocolFeeRecipientTokenAccount solana.PublicKey
	BaseTokenProgram                 solana.PublicKey
	QuoteTokenProgram                solana.PublicKey
	SystemProgram                    solana.PublicKey
	AssociatedTokenProgram           solana.PublicKey
	EventAuthority                   solana.PublicKey
	Program                          solana.PublicKey
	CoinCreatorVaultAta              solana.PublicKey
	CoinCreatorVaultAuthority        solana.PublicKey
}

type BuyAccounts = SwapAccounts

type SellAccounts = SwapAccounts

func (a SwapAccounts) ToAccountMetas() []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, 0, 19)
	metas = append(metas, solana.NewAccountMeta(a.Pool, true, false))
	metas = append(metas, solana.NewAccountMeta(a.User, true, true))
	metas = append(metas, solana.NewAccountMeta(a.GlobalConfig, false, false))
	metas = append(metas, solana.NewAccountMeta(a.BaseMint, false, false))
	metas = append(metas, solana.NewAccountMeta(a.QuoteMint, false, false))
	metas = append(metas, solana.NewAccountMeta(a.UserBaseTokenAccount, true, false))
	metas = append(metas, solana.NewAccountMeta(a.UserQuoteTokenAccount, true, false))
	metas = append(metas, solana.NewAccountMeta(a.PoolBaseTokenAccount, true, false))
	metas = append(metas, solana.NewAccountMeta(a.PoolQuoteTokenAccount, true, false))
	metas = append(metas, solana.NewAccountMeta(a.ProtocolFeeRecipient, false, false))
	metas = append(metas, solana.NewAccountMeta(a.ProtocolFeeRecipientTokenAccount, true, false))
	metas = append(metas, solana.NewAccountMeta(a.BaseTokenProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.QuoteTokenProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.SystemProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.AssociatedTokenProgram, false, false))
	metas = append(metas, solana.NewAccountMeta(a.EventAuthority, false, false))
	metas = append(metas, solana.NewAccountMeta(a.Program, false, false))
	metas = append(metas, solana.NewAccountMeta(a.CoinCreatorVaultAta, true, false))
	metas = append(metas, solana.NewAccountMeta(a.CoinCreatorVaultAuthority, false, false))
	return metas
}

// BuildBuy encodes an AMM buy.
func BuildBuy(accounts BuyAccounts, args BuyArgs) (solana.Instruction, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 24))
	buf.Write(BuyDiscriminator)
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	data := buf.Bytes()
	return solana.NewInstruction(accounts.Program, accounts.ToAccountMetas(), data), nil
}

// SellDiscriminator prefixes the AMM sell instruction data.
var SellDiscriminator = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}

type SellArgs struct {
	BaseAmountIn      uint64 `bin:"base_amount_in"`
	MinQuoteAmountOut uint64 `bin:"min_quote_amount_out"`
}

// BuildSell encodes an AMM sell.
func BuildSell(accounts SellAccounts, args SellArgs) (solana.Instruction, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 24))
	buf.Write(SellDiscriminator)
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	data := buf.Bytes()
	return solana.NewInstruction(accounts.Program, accounts.ToAccountMetas(), data), nil
}
