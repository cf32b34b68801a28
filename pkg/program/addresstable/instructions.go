// Package addresstable builds instructions for the native address lookup
// table program. Payloads are bincode: a u32 LE variant tag followed by the
// variant's fields.
package addresstable

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	InstructionCreate uint32 = iota
	InstructionFreeze
	InstructionExtend
	InstructionDeactivate
	InstructionClose
)

// MaxAddresses is the most keys a single table can hold.
const MaxAddresses = 256

// DeriveAddress returns the table address for authority at recentSlot.
func DeriveAddress(program, authority solana.PublicKey, recentSlot uint64) (solana.PublicKey, uint8, error) {
	slot := make([]byte, 8)
	binary.LittleEndian.PutUint64(slot, recentSlot)
	return solana.FindProgramAddress([][]byte{authority[:], slot}, program)
}

type CreateArgs struct {
	RecentSlot uint64
	BumpSeed   uint8
}

type CreateAccounts struct {
	LookupTable   solana.PublicKey
	Authority     solana.PublicKey
	Payer         solana.PublicKey
	SystemProgram solana.PublicKey
}

func (a CreateAccounts) ToAccountMetas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		solana.NewAccountMeta(a.LookupTable, true, false),
		solana.NewAccountMeta(a.Authority, false, false),
		solana.NewAccountMeta(a.Payer, true, true),
		solana.NewAccountMeta(a.SystemProgram, false, false),
	}
}

func BuildCreate(program solana.PublicKey, accounts CreateAccounts, args CreateArgs) (solana.Instruction, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 13))
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint32(InstructionCreate, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("encode tag: %w", err)
	}
	if err := enc.WriteUint64(args.RecentSlot, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("encode recent slot: %w", err)
	}
	if err := enc.WriteUint8(args.BumpSeed); err != nil {
		return nil, fmt.Errorf("encode bump: %w", err)
	}
	return solana.NewInstruction(program, accounts.ToAccountMetas(), buf.Bytes()), nil
}

type ExtendArgs struct {
	Addresses []solana.PublicKey
}

type ExtendAccounts struct {
	LookupTable   solana.PublicKey
	Authority     solana.PublicKey
	Payer         solana.PublicKey
	SystemProgram solana.PublicKey
}

func (a ExtendAccounts) ToAccountMetas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		solana.NewAccountMeta(a.LookupTable, true, false),
		solana.NewAccountMeta(a.Authority, false, true),
		solana.NewAccountMeta(a.Payer, true, true),
		solana.NewAccountMeta(a.SystemProgram, false, false),
	}
}

func BuildExtend(program solana.PublicKey, accounts ExtendAccounts, args ExtendArgs) (solana.Instruction, error) {
	if len(args.Addresses) == 0 {
		return nil, fmt.Errorf("extend: no addresses")
	}
	if len(args.Addresses) > MaxAddresses {
		return nil, fmt.Errorf("extend: %d addresses exceeds table capacity %d", len(args.Addresses), MaxAddresses)
	}
	buf := bytes.NewBuffer(make([]byte, 0, 12+32*len(args.Addresses)))
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint32(InstructionExtend, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("encode tag: %w", err)
	}
	if err := enc.WriteUint64(uint64(len(args.Addresses)), binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("encode length: %w", err)
	}
	for _, addr := range args.Addresses {
		if err := enc.WriteBytes(addr[:], false); err != nil {
			return nil, fmt.Errorf("encode address: %w", err)
		}
	}
	return solana.NewInstruction(program, accounts.ToAccountMetas(), buf.Bytes()), nil
}

type DeactivateAccounts struct {
	LookupTable solana.PublicKey
	Authority   solana.PublicKey
}

func (a DeactivateAccounts) ToAccountMetas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		solana.NewAccountMeta(a.LookupTable, true, false),
		solana.NewAccountMeta(a.Authority, false, true),
	}
}

func BuildDeactivate(program solana.PublicKey, accounts DeactivateAccounts) (solana.Instruction, error) {
	return solana.NewInstruction(program, accounts.ToAccountMetas(), tagOnly(InstructionDeactivate)), nil
}

type CloseAccounts struct {
	LookupTable solana.PublicKey
	Authority   solana.PublicKey
	Recipient   solana.PublicKey
}

func (a CloseAccounts) ToAccountMetas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		solana.NewAccountMeta(a.LookupTable, true, false),
		solana.NewAccountMeta(a.Authority, false, true),
		solana.NewAccountMeta(a.Recipient, true, false),
	}
}

func BuildClose(program solana.PublicKey, accounts CloseAccounts) (solana.Instruction, error) {
	return solana.NewInstruction(program, accounts.ToAccountMetas(), tagOnly(InstructionClose)), nil
}

func tagOnly(tag uint32) []byte {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, tag)
	return data
}
