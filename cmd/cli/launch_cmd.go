package main

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/ninja0404/pump-bundler/pkg/jito"
	"github.com/ninja0404/pump-bundler/pkg/launch"
	"github.com/ninja0404/pump-bundler/pkg/metadata"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/vanity"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// bundleFlags are shared by launch and snipe.
type bundleFlags struct {
	walletsPath string
	snipers     int
	buySOL      float64
	slippageBps uint64
	tipLamports uint64
	refreshTips bool
}

func (b *bundleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&b.walletsPath, "wallets", "wallets.json", "sniper wallet store")
	cmd.Flags().IntVar(&b.snipers, "snipers", 0, "use only the first N wallets (0 = all)")
	cmd.Flags().Float64Var(&b.buySOL, "buy-sol", 0, "total SOL the snipers spend, split with ±30% variance")
	cmd.Flags().Uint64Var(&b.slippageBps, "slippage-bps", 1000, "slippage tolerance on every buy")
	cmd.Flags().Uint64Var(&b.tipLamports, "tip-lamports", 0, "relay tip (0 = config value)")
	cmd.Flags().BoolVar(&b.refreshTips, "refresh-tips", false, "ask a block engine for tip accounts before building")
	_ = cmd.MarkFlagRequired("buy-sol")
}

// load reads the wallets and splits the buy budget across them.
func (b *bundleFlags) load() ([]wallet.Local, []uint64, error) {
	keys, err := loadWallets(b.walletsPath, b.snipers)
	if err != nil {
		return nil, nil, err
	}
	total, err := lamports("buy-sol", b.buySOL, false)
	if err != nil {
		wallet.ZeroAll(keys)
		return nil, nil, err
	}
	amounts, err := wallet.SniperAmounts(len(keys), total, nil)
	if err != nil {
		wallet.ZeroAll(keys)
		return nil, nil, err
	}
	return keys, amounts, nil
}

func (b *bundleFlags) pipeline(ctx context.Context, d *runtimeDeps) *launch.Pipeline {
	tracker := d.tracker()
	if b.refreshTips {
		if _, err := tracker.RefreshTipAccounts(ctx); err != nil {
			d.log.Warn().Err(err).Msg("tip account refresh failed, using configured accounts")
		}
	}
	return launch.New(d.cfg, launch.Deps{
		Chain:    d.rpc,
		Tables:   d.tables(),
		Relay:    d.relay(),
		Tracker:  tracker,
		Accounts: d.poller,
		Uploader: d.uploader(),
	}, d.log)
}

func newLaunchCmd(opts *globalOpts) *cobra.Command {
	var (
		bf           bundleFlags
		deployerKey  string
		mintKey      string
		poolPath     string
		metadataPath string
		uri          string
		devBuySOL    float64
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Create a token and bundle the snipers into the same block",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ctx, cancel, err := setup(cmd, opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer cancel()

			var token metadata.Token
			if metadataPath != "" {
				if token, err = metadata.Load(metadataPath); err != nil {
					return emit(cmd, nil, err)
				}
			} else if uri == "" {
				return emit(cmd, nil, types.Validation("launch", "one of --metadata or --uri is required"))
			}
			deployer, err := loadSigner("deployer", deployerKey)
			if err != nil {
				return emit(cmd, nil, err)
			}
			devBuy, err := lamports("dev-buy-sol", devBuySOL, true)
			if err != nil {
				return emit(cmd, nil, err)
			}

			var pool *vanity.Pool
			var mint wallet.Local
			switch {
			case mintKey != "":
				mint, err = loadSigner("mint", mintKey)
			case poolPath != "":
				mint, pool, err = grabVanity(poolPath, d)
			default:
				var keys []wallet.Local
				keys, err = wallet.Generate(1)
				if err == nil {
					mint = keys[0]
				}
			}
			if err != nil {
				deployer.Zero()
				return emit(cmd, nil, err)
			}

			// The pool on disk is untouched until settleVanity saves it.
			snipers, amounts, err := bf.load()
			if err != nil {
				deployer.Zero()
				mint.Zero()
				return emit(cmd, nil, err)
			}
			mintPub := mint.PublicKey()
			rep, err := bf.pipeline(ctx, d).Run(ctx, launch.Request{
				Create: &launch.Creation{
					Deployer: deployer,
					Mint:     mint,
					Token:    token,
					URI:      uri,
					DevBuy:   devBuy,
				},
				Snipers:     snipers,
				Amounts:     amounts,
				SlippageBps: bf.slippageBps,
				TipLamports: bf.tipLamports,
			})
			if pool != nil {
				settleVanity(pool, poolPath, mintPub, rep, err, d)
			}
			return emit(cmd, fields{"report": rep}, err)
		},
	}

	bf.register(cmd)
	cmd.Flags().StringVar(&deployerKey, "deployer", "", "deployer keypair file or base58 key")
	cmd.Flags().StringVar(&mintKey, "mint-key", "", "mint keypair file or base58 key (default: fresh key)")
	cmd.Flags().StringVar(&poolPath, "vanity-pool", "", "take the mint key from this vanity pool store")
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "token metadata json, pinned to IPFS before the launch")
	cmd.Flags().StringVar(&uri, "uri", "", "already pinned metadata uri")
	cmd.Flags().Float64Var(&devBuySOL, "dev-buy-sol", 0, "deployer's own buy in the creation transaction")
	_ = cmd.MarkFlagRequired("deployer")
	cmd.MarkFlagsMutuallyExclusive("mint-key", "vanity-pool")

	return cmd
}

func newSnipeCmd(opts *globalOpts) *cobra.Command {
	var (
		bf      bundleFlags
		mintStr string
	)

	cmd := &cobra.Command{
		Use:   "snipe",
		Short: "Bundle sniper buys on an existing bonding curve",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ctx, cancel, err := setup(cmd, opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer cancel()

			mint, err := parsePubkey("mint", mintStr)
			if err != nil {
				return emit(cmd, nil, err)
			}
			snipers, amounts, err := bf.load()
			if err != nil {
				return emit(cmd, nil, err)
			}
			rep, err := bf.pipeline(ctx, d).Run(ctx, launch.Request{
				Mint:        mint,
				Snipers:     snipers,
				Amounts:     amounts,
				SlippageBps: bf.slippageBps,
				TipLamports: bf.tipLamports,
			})
			return emit(cmd, fields{"report": rep}, err)
		},
	}

	bf.register(cmd)
	cmd.Flags().StringVar(&mintStr, "mint", "", "mint pubkey")
	_ = cmd.MarkFlagRequired("mint")

	return cmd
}

// grabVanity takes a detached copy of a pool key: the pipeline wipes the
// key it is handed, while the pool must keep its own until the outcome is
// known.
func grabVanity(path string, d *runtimeDeps) (wallet.Local, *vanity.Pool, error) {
	pool, err := vanity.LoadPool(path, d.log)
	if err != nil {
		return wallet.Local{}, nil, err
	}
	key, ok := pool.Grab()
	if !ok {
		return wallet.Local{}, nil, types.Validationf("vanity pool", "no keys available in %s", path)
	}
	return copyKey(key), pool, nil
}

// settleVanity retires the mint key once a launch used it on-chain and puts
// it back otherwise.
func settleVanity(pool *vanity.Pool, path string, mint solana.PublicKey, rep *launch.Report, runErr error, d *runtimeDeps) {
	used := runErr == nil || (rep != nil && rep.Outcome != nil && rep.Outcome.Status == jito.BundleLanded)
	if used {
		pool.Confirm(mint)
	} else {
		pool.Fail(mint)
	}
	if err := pool.Save(path); err != nil {
		d.log.Error().Err(err).Str("mint", mint.String()).Msg("vanity pool save failed")
	}
}
