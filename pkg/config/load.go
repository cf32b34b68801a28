package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// EnvPrefix scopes environment overrides, e.g. BUNDLER_RELAY_UUID.
const EnvPrefix = "BUNDLER"

type pollFile struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// fileConfig mirrors Config with string keys so a file or the environment can override it.
type fileConfig struct {
	RPC struct {
		Network        string        `mapstructure:"network"`
		URL            string        `mapstructure:"url"`
		Commitment     string        `mapstructure:"commitment"`
		Timeout        time.Duration `mapstructure:"timeout"`
		RetryAttempts  int           `mapstructure:"retry_attempts"`
		RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
		RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
		RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	} `mapstructure:"rpc"`
	Programs struct {
		Pump            string `mapstructure:"pump"`
		PumpAmm         string `mapstructure:"pump_amm"`
		Metadata        string `mapstructure:"metadata"`
		LookupTable     string `mapstructure:"lookup_table"`
		Token           string `mapstructure:"token"`
		AssociatedToken string `mapstructure:"associated_token"`
		System          string `mapstructure:"system"`
	} `mapstructure:"programs"`
	Accounts struct {
		Global                  string `mapstructure:"global"`
		FeeRecipient            string `mapstructure:"fee_recipient"`
		EventAuthority          string `mapstructure:"event_authority"`
		MintAuthority           string `mapstructure:"mint_authority"`
		TransferWallet          string `mapstructure:"transfer_wallet"`
		WSOLMint                string `mapstructure:"wsol_mint"`
		AmmGlobalConfig         string `mapstructure:"amm_global_config"`
		AmmProtocolFeeRecipient string `mapstructure:"amm_protocol_fee_recipient"`
		AmmEventAuthority       string `mapstructure:"amm_event_authority"`
	} `mapstructure:"accounts"`
	Fees struct {
		PumpBps        uint64 `mapstructure:"pump_bps"`
		TransferBps    uint64 `mapstructure:"transfer_bps"`
		AmmLPBps       uint64 `mapstructure:"amm_lp_bps"`
		AmmProtocolBps uint64 `mapstructure:"amm_protocol_bps"`
		AmmCreatorBps  uint64 `mapstructure:"amm_creator_bps"`
	} `mapstructure:"fees"`
	Curve struct {
		VirtualSolReserves   uint64 `mapstructure:"virtual_sol_reserves"`
		VirtualTokenReserves uint64 `mapstructure:"virtual_token_reserves"`
	} `mapstructure:"curve"`
	Relay struct {
		BlockEngines []string      `mapstructure:"block_engines"`
		TipAccounts  []string      `mapstructure:"tip_accounts"`
		UUID         string        `mapstructure:"uuid"`
		TipLamports  uint64        `mapstructure:"tip_lamports"`
		SendToAll    bool          `mapstructure:"send_to_all"`
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"relay"`
	Limits struct {
		MaxPerUnit int `mapstructure:"max_per_unit"`
		MaxUnits   int `mapstructure:"max_units"`
		MaxTxSize  int `mapstructure:"max_tx_size"`
	} `mapstructure:"limits"`
	Polling struct {
		Activation      pollFile      `mapstructure:"activation"`
		Deactivation    pollFile      `mapstructure:"deactivation"`
		Confirmation    pollFile      `mapstructure:"confirmation"`
		TokenVisibility pollFile      `mapstructure:"token_visibility"`
		AmmConfirmation pollFile      `mapstructure:"amm_confirmation"`
		Bundle          pollFile      `mapstructure:"bundle"`
		SettleDelay     time.Duration `mapstructure:"settle_delay"`
	} `mapstructure:"polling"`
	Pinata struct {
		Endpoint  string `mapstructure:"endpoint"`
		APIKey    string `mapstructure:"api_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"pinata"`
}

// Load overlays an optional config file (yaml, json or toml) and BUNDLER_*
// environment variables on top of Default, then validates the result.
// An empty path reads only the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg, err := fc.toConfig()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Settings flattens cfg into the key space Load reads, for display.
func Settings(cfg Config) map[string]any {
	v := viper.New()
	setDefaults(v, cfg)
	v.Set("pinata.secret_key", redact(cfg.Pinata.SecretKey))
	v.Set("pinata.api_key", redact(cfg.Pinata.APIKey))
	return v.AllSettings()
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("rpc.network", string(d.RPC.Network))
	v.SetDefault("rpc.url", d.RPC.RPCURL)
	v.SetDefault("rpc.commitment", d.RPC.Commitment)
	v.SetDefault("rpc.timeout", d.RPC.Timeout)
	v.SetDefault("rpc.retry_attempts", d.RPC.Retry.MaxAttempts)
	v.SetDefault("rpc.retry_backoff", d.RPC.Retry.InitialBackoff)
	v.SetDefault("rpc.rate_limit_rps", d.RPC.RateLimit.RPS)
	v.SetDefault("rpc.rate_limit_burst", d.RPC.RateLimit.Burst)

	v.SetDefault("programs.pump", d.Programs.Pump.String())
	v.SetDefault("programs.pump_amm", d.Programs.PumpAmm.String())
	v.SetDefault("programs.metadata", d.Programs.Metadata.String())
	v.SetDefault("programs.lookup_table", d.Programs.LookupTable.String())
	v.SetDefault("programs.token", d.Programs.Token.String())
	v.SetDefault("programs.associated_token", d.Programs.AssociatedToken.String())
	v.SetDefault("programs.system", d.Programs.System.String())

	v.SetDefault("accounts.global", d.Accounts.Global.String())
	v.SetDefault("accounts.fee_recipient", d.Accounts.FeeRecipient.String())
	v.SetDefault("accounts.event_authority", d.Accounts.EventAuthority.String())
	v.SetDefault("accounts.mint_authority", d.Accounts.MintAuthority.String())
	v.SetDefault("accounts.transfer_wallet", d.Accounts.TransferWallet.String())
	v.SetDefault("accounts.wsol_mint", d.Accounts.WSOLMint.String())
	v.SetDefault("accounts.amm_global_config", d.Accounts.AmmGlobalConfig.String())
	v.SetDefault("accounts.amm_protocol_fee_recipient", d.Accounts.AmmProtocolFeeRecipient.String())
	v.SetDefault("accounts.amm_event_authority", d.Accounts.AmmEventAuthority.String())

	v.SetDefault("fees.pump_bps", d.Fees.PumpBps)
	v.SetDefault("fees.transfer_bps", d.Fees.TransferBps)
	v.SetDefault("fees.amm_lp_bps", d.Fees.AmmLPBps)
	v.SetDefault("fees.amm_protocol_bps", d.Fees.AmmProtocolBps)
	v.SetDefault("fees.amm_creator_bps", d.Fees.AmmCreatorBps)

	v.SetDefault("curve.virtual_sol_reserves", d.Curve.VirtualSolReserves)
	v.SetDefault("curve.virtual_token_reserves", d.Curve.VirtualTokenReserves)

	tips := make([]string, len(d.Relay.TipAccounts))
	for i, k := range d.Relay.TipAccounts {
		tips[i] = k.String()
	}
	v.SetDefault("relay.block_engines", d.Relay.BlockEngines)
	v.SetDefault("relay.tip_accounts", tips)
	v.SetDefault("relay.uuid", d.Relay.UUID)
	v.SetDefault("relay.tip_lamports", d.Relay.TipLamports)
	v.SetDefault("relay.send_to_all", d.Relay.SendToAll)
	v.SetDefault("relay.timeout", d.Relay.Timeout)

	v.SetDefault("limits.max_per_unit", d.Limits.MaxPerUnit)
	v.SetDefault("limits.max_units", d.Limits.MaxUnits)
	v.SetDefault("limits.max_tx_size", d.Limits.MaxTxSize)

	for name, p := range map[string]PollSpec{
		"activation":       d.Polling.Activation,
		"deactivation":     d.Polling.Deactivation,
		"confirmation":     d.Polling.Confirmation,
		"token_visibility": d.Polling.TokenVisibility,
		"amm_confirmation": d.Polling.AmmConfirmation,
		"bundle":           d.Polling.Bundle,
	} {
		v.SetDefault("polling."+name+".interval", p.Interval)
		v.SetDefault("polling."+name+".max_attempts", p.MaxAttempts)
	}
	v.SetDefault("polling.settle_delay", d.Polling.SettleDelay)

	v.SetDefault("pinata.endpoint", d.Pinata.Endpoint)
	v.SetDefault("pinata.api_key", d.Pinata.APIKey)
	v.SetDefault("pinata.secret_key", d.Pinata.SecretKey)
}

// keyParser collects the first parse failure so toConfig reads linearly.
type keyParser struct {
	err error
}

func (p *keyParser) key(name, value string) solana.PublicKey {
	if p.err != nil {
		return solana.PublicKey{}
	}
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(value))
	if err != nil {
		p.err = fmt.Errorf("config: %s: invalid public key %q: %w", name, value, err)
	}
	return pk
}

func (fc fileConfig) toConfig() (Config, error) {
	cfg := Default()
	p := &keyParser{}

	cfg.RPC.Network = Network(fc.RPC.Network)
	cfg.RPC.RPCURL = fc.RPC.URL
	cfg.RPC.Commitment = fc.RPC.Commitment
	cfg.RPC.Timeout = fc.RPC.Timeout
	cfg.RPC.Retry.MaxAttempts = fc.RPC.RetryAttempts
	cfg.RPC.Retry.Enabled = fc.RPC.RetryAttempts > 1
	cfg.RPC.Retry.InitialBackoff = fc.RPC.RetryBackoff
	cfg.RPC.RateLimit.RPS = fc.RPC.RateLimitRPS
	cfg.RPC.RateLimit.Burst = fc.RPC.RateLimitBurst

	cfg.Programs = Programs{
		Pump:            p.key("programs.pump", fc.Programs.Pump),
		PumpAmm:         p.key("programs.pump_amm", fc.Programs.PumpAmm),
		Metadata:        p.key("programs.metadata", fc.Programs.Metadata),
		LookupTable:     p.key("programs.lookup_table", fc.Programs.LookupTable),
		Token:           p.key("programs.token", fc.Programs.Token),
		AssociatedToken: p.key("programs.associated_token", fc.Programs.AssociatedToken),
		System:          p.key("programs.system", fc.Programs.System),
	}
	cfg.Accounts = Accounts{
		Global:                  p.key("accounts.global", fc.Accounts.Global),
		FeeRecipient:            p.key("accounts.fee_recipient", fc.Accounts.FeeRecipient),
		EventAuthority:          p.key("accounts.event_authority", fc.Accounts.EventAuthority),
		MintAuthority:           p.key("accounts.mint_authority", fc.Accounts.MintAuthority),
		TransferWallet:          p.key("accounts.transfer_wallet", fc.Accounts.TransferWallet),
		WSOLMint:                p.key("accounts.wsol_mint", fc.Accounts.WSOLMint),
		AmmGlobalConfig:         p.key("accounts.amm_global_config", fc.Accounts.AmmGlobalConfig),
		AmmProtocolFeeRecipient: p.key("accounts.amm_protocol_fee_recipient", fc.Accounts.AmmProtocolFeeRecipient),
		AmmEventAuthority:       p.key("accounts.amm_event_authority", fc.Accounts.AmmEventAuthority),
	}

	cfg.Fees = Fees(fc.Fees)
	cfg.Curve = Curve(fc.Curve)

	tips := make([]solana.PublicKey, 0, len(fc.Relay.TipAccounts))
	for i, s := range fc.Relay.TipAccounts {
		tips = append(tips, p.key(fmt.Sprintf("relay.tip_accounts[%d]", i), s))
	}
	cfg.Relay = Relay{
		BlockEngines: trimEndpoints(fc.Relay.BlockEngines),
		TipAccounts:  tips,
		UUID:         fc.Relay.UUID,
		TipLamports:  fc.Relay.TipLamports,
		SendToAll:    fc.Relay.SendToAll,
		Timeout:      fc.Relay.Timeout,
	}
	cfg.Limits = Limits(fc.Limits)
	cfg.Polling = Polling{
		Activation:      PollSpec(fc.Polling.Activation),
		Deactivation:    PollSpec(fc.Polling.Deactivation),
		Confirmation:    PollSpec(fc.Polling.Confirmation),
		TokenVisibility: PollSpec(fc.Polling.TokenVisibility),
		AmmConfirmation: PollSpec(fc.Polling.AmmConfirmation),
		Bundle:          PollSpec(fc.Polling.Bundle),
		SettleDelay:     fc.Polling.SettleDelay,
	}
	cfg.Pinata = Pinata(fc.Pinata)

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

func trimEndpoints(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.TrimRight(strings.TrimSpace(e), "/")
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
