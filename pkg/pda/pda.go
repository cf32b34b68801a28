// Package pda derives the program-derived addresses pump, the pump AMM and
// metaplex expect. Seed tags and their order are part of each program's
// calling convention.
package pda

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/program/addresstable"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// Resolver derives addresses against the program ids in a Config.
type Resolver struct {
	cfg config.Config
}

// NewResolver returns a Resolver bound to cfg.
func NewResolver(cfg config.Config) Resolver {
	return Resolver{cfg: cfg}
}

func (r Resolver) find(op string, program solana.PublicKey, seeds ...[]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return solana.PublicKey{}, 0, types.Internal("pda."+op, err)
	}
	return addr, bump, nil
}

// BondingCurve is ["bonding-curve", mint] under pump.
func (r Resolver) BondingCurve(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return r.find("bonding_curve", r.cfg.Programs.Pump, []byte(constants.SeedBondingCurve), mint[:])
}

// AssociatedBondingCurve is the bonding curve's token account for mint.
func (r Resolver) AssociatedBondingCurve(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	curve, _, err := r.BondingCurve(mint)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	return r.ATA(curve, mint)
}

// CreatorVault is ["creator-vault", creator] under pump.
func (r Resolver) CreatorVault(creator solana.PublicKey) (solana.PublicKey, uint8, error) {
	return r.find("creator_vault", r.cfg.Programs.Pump, []byte(constants.SeedCreatorVault), creator[:])
}

// AmmCreatorVault is ["creator_vault", coinCreator] under the AMM. Note the
// underscore; the AMM does not share pump's seed.
func (r Resolver) AmmCreatorVault(coinCreator solana.PublicKey) (solana.PublicKey, uint8, error) {
	return r.find("amm_creator_vault", r.cfg.Programs.PumpAmm, []byte(constants.SeedCreatorVaultAmm), coinCreator[:])
}

// AmmCreatorVaultATA is the WSOL account owned by the AMM creator vault.
func (r Resolver) AmmCreatorVaultATA(coinCreator solana.PublicKey) (solana.PublicKey, uint8, error) {
	vault, _, err := r.AmmCreatorVault(coinCreator)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	return r.ATA(vault, r.cfg.Accounts.WSOLMint)
}

// PoolAuthority is ["pool-authority", mint] under pump.
func (r Resolver) PoolAuthority(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return r.find("pool_authority", r.cfg.Programs.Pump, []byte(constants.SeedPoolAuthority), mint[:])
}

// Pool is ["pool", u16 LE index, creator, baseMint, quoteMint] under the AMM.
func (r Resolver) Pool(index uint16, creator, baseMint, quoteMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	idx := make([]byte, 2)
	binary.LittleEndian.PutUint16(idx, index)
	return r.find("pool", r.cfg.Programs.PumpAmm, []byte(constants.SeedPool), idx, creator[:], baseMint[:], quoteMint[:])
}

// CanonicalPool is the pool a graduated mint migrates into: index 0, created
// by the mint's pool authority, quoted in WSOL.
func (r Resolver) CanonicalPool(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	authority, _, err := r.PoolAuthority(mint)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	return r.Pool(0, authority, mint, r.cfg.Accounts.WSOLMint)
}

// Metadata is ["metadata", metaplex program, mint] under metaplex.
func (r Resolver) Metadata(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	program := r.cfg.Programs.Metadata
	return r.find("metadata", program, []byte(constants.SeedMetadata), program[:], mint[:])
}

// ATA is the associated token account for owner and mint under the
// configured token program.
func (r Resolver) ATA(owner, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return r.find("ata", r.cfg.Programs.AssociatedToken, owner[:], r.cfg.Programs.Token[:], mint[:])
}

// LookupTable is the address a table created by authority at recentSlot gets.
func (r Resolver) LookupTable(authority solana.PublicKey, recentSlot uint64) (solana.PublicKey, uint8, error) {
	addr, bump, err := addresstable.DeriveAddress(r.cfg.Programs.LookupTable, authority, recentSlot)
	if err != nil {
		return solana.PublicKey{}, 0, types.Internal("pda.lookup_table", err)
	}
	return addr, bump, nil
}
