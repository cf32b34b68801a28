package config

import (
	"fmt"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/constants"
)

// Network defines the target Solana cluster.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
	NetworkCustom  Network = "custom"
)

// DefaultRPCURL returns the standard RPC endpoint for a known network.
func DefaultRPCURL(network Network) string {
	switch network {
	case NetworkMainnet:
		return "https://api.mainnet-beta.solana.com"
	case NetworkDevnet:
		return "https://api.devnet.solana.com"
	default:
		return ""
	}
}

// RetryConfig controls RPC retry behavior.
type RetryConfig struct {
	Enabled        bool
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Jitter         bool
}

// RateLimitConfig throttles outbound RPC calls.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RPCConfig aggregates runtime settings for RPC usage.
type RPCConfig struct {
	Network    Network
	RPCURL     string
	Commitment string
	Timeout    time.Duration
	Retry      RetryConfig
	RateLimit  RateLimitConfig
	Logger     zerolog.Logger
}

// DefaultRPCConfig yields mainnet defaults with confirmed commitment.
// Bundles race the next leader slot, so finalized is too slow for
// blockhashes and status reads.
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		Network:    NetworkMainnet,
		RPCURL:     DefaultRPCURL(NetworkMainnet),
		Commitment: "confirmed",
		Timeout:    20 * time.Second,
		Retry: RetryConfig{
			Enabled:        true,
			MaxAttempts:    3,
			InitialBackoff: 150 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Jitter:         true,
		},
		RateLimit: RateLimitConfig{
			RPS:   8,
			Burst: 16,
		},
		Logger: zerolog.New(io.Discard),
	}
}

// ResolveRPCURL returns RPCURL if set, otherwise falls back to network defaults.
func (c RPCConfig) ResolveRPCURL() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	return DefaultRPCURL(c.Network)
}

// Programs lists every on-chain program the bundler calls.
type Programs struct {
	Pump            solana.PublicKey
	PumpAmm         solana.PublicKey
	Metadata        solana.PublicKey
	LookupTable     solana.PublicKey
	Token           solana.PublicKey
	AssociatedToken solana.PublicKey
	System          solana.PublicKey
}

// Accounts are fixed accounts referenced by pump and pump AMM instructions.
type Accounts struct {
	Global                  solana.PublicKey
	FeeRecipient            solana.PublicKey
	EventAuthority          solana.PublicKey
	MintAuthority           solana.PublicKey
	TransferWallet          solana.PublicKey
	WSOLMint                solana.PublicKey
	AmmGlobalConfig         solana.PublicKey
	AmmProtocolFeeRecipient solana.PublicKey
	AmmEventAuthority       solana.PublicKey
}

// Fees in basis points.
type Fees struct {
	PumpBps        uint64
	TransferBps    uint64
	AmmLPBps       uint64
	AmmProtocolBps uint64
	AmmCreatorBps  uint64
}

// Curve is the virtual reserve pair a new bonding curve starts from.
type Curve struct {
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

// Relay configures block-engine submission.
type Relay struct {
	BlockEngines []string
	TipAccounts  []solana.PublicKey
	UUID         string
	TipLamports  uint64
	SendToAll    bool
	Timeout      time.Duration
}

// Limits bound the size of a bundle.
type Limits struct {
	MaxPerUnit int
	MaxUnits   int
	MaxTxSize  int
}

// PollSpec is a fixed-interval, bounded poll.
type PollSpec struct {
	Interval    time.Duration
	MaxAttempts int
}

// Polling groups every bounded wait in a run.
type Polling struct {
	Activation      PollSpec
	Deactivation    PollSpec
	Confirmation    PollSpec
	TokenVisibility PollSpec
	AmmConfirmation PollSpec
	Bundle          PollSpec
	SettleDelay     time.Duration
}

// Pinata holds pinning-service credentials.
type Pinata struct {
	Endpoint  string
	APIKey    string
	SecretKey string
}

// Config is the immutable constant table handed to every component at startup.
// Pass it by value; nothing mutates it after Load or Default.
type Config struct {
	RPC      RPCConfig
	Programs Programs
	Accounts Accounts
	Fees     Fees
	Curve    Curve
	Relay    Relay
	Limits   Limits
	Polling  Polling
	Pinata   Pinata
}

// MainnetBlockEngines are the Jito block-engine base URLs a bundle is fanned out to.
var MainnetBlockEngines = []string{
	"https://frankfurt.mainnet.block-engine.jito.wtf",
	"https://amsterdam.mainnet.block-engine.jito.wtf",
	"https://london.mainnet.block-engine.jito.wtf",
	"https://ny.mainnet.block-engine.jito.wtf",
	"https://tokyo.mainnet.block-engine.jito.wtf",
	"https://slc.mainnet.block-engine.jito.wtf",
}

// MainnetTipAccounts are the official Jito tip accounts.
var MainnetTipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// Default returns the mainnet constant table.
func Default() Config {
	return Config{
		RPC: DefaultRPCConfig(),
		Programs: Programs{
			Pump:            constants.PumpProgramID,
			PumpAmm:         constants.PumpAmmProgramID,
			Metadata:        constants.MetadataProgramID,
			LookupTable:     constants.LookupTableProgramID,
			Token:           constants.TokenProgramID,
			AssociatedToken: constants.AssociatedTokenProgramID,
			System:          constants.SystemProgramID,
		},
		Accounts: Accounts{
			Global:                  constants.PumpGlobal,
			FeeRecipient:            constants.PumpFeeRecipient,
			EventAuthority:          constants.PumpEventAuthority,
			MintAuthority:           constants.PumpMintAuthority,
			TransferWallet:          constants.TransferWallet,
			WSOLMint:                constants.WSOLMint,
			AmmGlobalConfig:         constants.AmmGlobalConfig,
			AmmProtocolFeeRecipient: constants.AmmProtocolFeeRecipient,
			AmmEventAuthority:       constants.AmmEventAuthority,
		},
		Fees: Fees{
			PumpBps:        constants.PumpFeeBps,
			TransferBps:    constants.TransferFeeBps,
			AmmLPBps:       constants.AmmLPFeeBps,
			AmmProtocolBps: constants.AmmProtocolFeeBps,
			AmmCreatorBps:  constants.AmmCreatorFeeBps,
		},
		Curve: Curve{
			VirtualSolReserves:   constants.InitialVirtualSolReserves,
			VirtualTokenReserves: constants.InitialVirtualTokenReserves,
		},
		Relay: Relay{
			BlockEngines: append([]string(nil), MainnetBlockEngines...),
			TipAccounts:  append([]solana.PublicKey(nil), MainnetTipAccounts...),
			TipLamports:  10_000,
			SendToAll:    true,
			Timeout:      10 * time.Second,
		},
		Limits: Limits{
			MaxPerUnit: 5,
			MaxUnits:   4,
			MaxTxSize:  constants.MaxTransactionSize,
		},
		Polling: Polling{
			Activation:      PollSpec{Interval: 500 * time.Millisecond, MaxAttempts: 20},
			Deactivation:    PollSpec{Interval: 500 * time.Millisecond, MaxAttempts: 20},
			Confirmation:    PollSpec{Interval: 100 * time.Millisecond, MaxAttempts: 30},
			TokenVisibility: PollSpec{Interval: 20 * time.Millisecond, MaxAttempts: 150},
			AmmConfirmation: PollSpec{Interval: 500 * time.Millisecond, MaxAttempts: 21},
			Bundle:          PollSpec{Interval: 500 * time.Millisecond, MaxAttempts: 60},
			SettleDelay:     time.Second,
		},
		Pinata: Pinata{
			Endpoint: "https://api.pinata.cloud/pinning/pinFileToIPFS",
		},
	}
}

// Validate rejects tables no run could succeed with.
func (c Config) Validate() error {
	if len(c.Relay.BlockEngines) == 0 {
		return fmt.Errorf("config: relay.block_engines is empty")
	}
	if len(c.Relay.TipAccounts) == 0 {
		return fmt.Errorf("config: relay.tip_accounts is empty")
	}
	if c.Limits.MaxPerUnit <= 0 || c.Limits.MaxUnits <= 0 {
		return fmt.Errorf("config: limits must be positive (max_per_unit=%d max_units=%d)", c.Limits.MaxPerUnit, c.Limits.MaxUnits)
	}
	if c.Limits.MaxTxSize <= 0 {
		return fmt.Errorf("config: limits.max_tx_size must be positive")
	}
	for name, bps := range map[string]uint64{
		"pump_bps":         c.Fees.PumpBps,
		"transfer_bps":     c.Fees.TransferBps,
		"amm_lp_bps":       c.Fees.AmmLPBps,
		"amm_protocol_bps": c.Fees.AmmProtocolBps,
		"amm_creator_bps":  c.Fees.AmmCreatorBps,
	} {
		if bps > constants.BasisPointsDivisor {
			return fmt.Errorf("config: fees.%s must be <= 10000, got %d", name, bps)
		}
	}
	for name, p := range map[string]PollSpec{
		"activation":       c.Polling.Activation,
		"deactivation":     c.Polling.Deactivation,
		"confirmation":     c.Polling.Confirmation,
		"token_visibility": c.Polling.TokenVisibility,
		"amm_confirmation": c.Polling.AmmConfirmation,
		"bundle":           c.Polling.Bundle,
	} {
		if p.MaxAttempts <= 0 || p.Interval <= 0 {
			return fmt.Errorf("config: polling.%s needs a positive interval and max_attempts", name)
		}
	}
	return nil
}
