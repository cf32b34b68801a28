package constants

import "github.com/gagliardetto/solana-go"

// Well-known program IDs
var (
	// SPL Programs
	SystemProgramID          = solana.SystemProgramID
	TokenProgramID           = solana.TokenProgramID
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
	SysvarRentProgramID      = solana.SysVarRentPubkey
	ComputeBudgetProgramID   = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	MetadataProgramID        = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	LookupTableProgramID     = solana.MustPublicKeyFromBase58("AddressLookupTab1e1111111111111111111111111")

	// Pump.fun Program
	PumpProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// Pump AMM Program
	PumpAmmProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
)

// Mainnet well-known accounts
var (
	// WSOL (Native Mint)
	WSOLMint = solana.WrappedSol

	PumpGlobal         = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")
	PumpFeeRecipient   = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	PumpEventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
	PumpMintAuthority  = solana.MustPublicKeyFromBase58("TSLvdd1pWpHVjahSpsvCXUbgwsL3JAcvokwaKt1eokM")

	// TransferWallet receives the launch fee (TransferFeeBps of the bundle total).
	TransferWallet = solana.MustPublicKeyFromBase58("FEExX798hpCjB4CGpkbojm3uCrMGSfByhd8drPUNNbxT")

	AmmGlobalConfig         = solana.MustPublicKeyFromBase58("ADyA8hdefvWN2dbGGWFotbzWxrAvLW83WG6QCVXvJKqw")
	AmmProtocolFeeRecipient = solana.MustPublicKeyFromBase58("62qc2CNXwrYqQScmEdiZFFAnJR262PxWEuNQtxfafNgV")
	AmmEventAuthority       = solana.MustPublicKeyFromBase58("GS4CU59F31iL7aR2Q8zVS8DRrcRnXX1yjQ66TqNVQnaR")
)

// PDA seeds
const (
	SeedBondingCurve    = "bonding-curve"
	SeedCreatorVault    = "creator-vault"
	SeedPoolAuthority   = "pool-authority"
	SeedPool            = "pool"
	SeedMetadata        = "metadata"
	SeedCreatorVaultAmm = "creator_vault"
)

// Fee schedule, in basis points.
const (
	PumpFeeBps         = 100
	TransferFeeBps     = 100
	AmmLPFeeBps        = 30
	AmmProtocolFeeBps  = 10
	AmmCreatorFeeBps   = 10
	BasisPointsDivisor = 10_000
)

// Bonding curve starting point for a freshly created mint.
const (
	InitialVirtualSolReserves   uint64 = 30_000_000_000
	InitialVirtualTokenReserves uint64 = 1_073_000_000_000_000
)

// Wire limits.
const (
	MaxTransactionSize   = 1232
	LookupTableMetaSize  = 56
	TokenAccountAmountAt = 64
	AmmPoolCoinCreatorAt = 211
	ComputeUnitLimit     = 1_400_000
	LamportsPerSOL       = 1_000_000_000
)

// Fee sizing for AMM swaps.
const (
	// AmmComputeUnitPrice spreads a 0.000005 SOL priority fee over ComputeUnitLimit.
	AmmComputeUnitPrice uint64 = 5_000_000_000 / ComputeUnitLimit
	// ATACreateFeeLamports is the rent for one token account.
	ATACreateFeeLamports uint64 = 2_039_280
)
