package main

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/ninja0404/pump-bundler/pkg/autofill"
	"github.com/ninja0404/pump-bundler/pkg/pricing"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// tradeFlags are shared by the single-wallet swap commands.
type tradeFlags struct {
	mintStr     string
	walletKey   string
	slippageBps uint64
	simulate    bool
}

func (t *tradeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.mintStr, "mint", "", "mint pubkey")
	cmd.Flags().StringVar(&t.walletKey, "wallet", "", "trading keypair file or base58 key")
	cmd.Flags().Uint64Var(&t.slippageBps, "slippage-bps", 500, "slippage tolerance")
	cmd.Flags().BoolVar(&t.simulate, "simulate", false, "simulate instead of sending")
	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("wallet")
}

func (t *tradeFlags) load() (solana.PublicKey, wallet.Local, error) {
	mint, err := parsePubkey("mint", t.mintStr)
	if err != nil {
		return solana.PublicKey{}, wallet.Local{}, err
	}
	w, err := loadSigner("wallet", t.walletKey)
	if err != nil {
		return solana.PublicKey{}, wallet.Local{}, err
	}
	return mint, w, nil
}

func newBuyCmd(opts *globalOpts) *cobra.Command {
	var (
		tf     tradeFlags
		solAmt float64
	)
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Buy on a pump bonding curve with one wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ctx, cancel, err := setup(cmd, opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer cancel()

			mint, w, err := tf.load()
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer w.Zero()
			solIn, err := lamports("sol", solAmt, false)
			if err != nil {
				return emit(cmd, nil, err)
			}

			curve, err := openCurve(ctx, d, mint)
			if err != nil {
				return emit(cmd, nil, err)
			}
			q, err := pricing.QuoteBuy(solIn, curve.BuyReserves(), d.cfg.Fees.PumpBps)
			if err != nil {
				return emit(cmd, nil, err)
			}
			_, _, instrs, err := d.filler.Buy(w.PublicKey(), mint, curve.Curve.Creator, q.AmountOut, solIn, tf.slippageBps)
			if err != nil {
				return emit(cmd, nil, err)
			}
			out, err := execute(ctx, d.builder, w, instrs, tf.simulate)
			out["quote"] = q
			out["price_impact_bps"] = pricing.PriceImpactBps(curve.BuyReserves(), solIn, q.AmountOut)
			return emit(cmd, out, err)
		},
	}
	tf.register(cmd)
	cmd.Flags().Float64Var(&solAmt, "sol", 0, "SOL to spend")
	_ = cmd.MarkFlagRequired("sol")
	return cmd
}

func newSellCmd(opts *globalOpts) *cobra.Command {
	var (
		tf     tradeFlags
		amount uint64
	)
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Sell on a pump bonding curve with one wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ctx, cancel, err := setup(cmd, opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer cancel()

			mint, w, err := tf.load()
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer w.Zero()

			curve, err := openCurve(ctx, d, mint)
			if err != nil {
				return emit(cmd, nil, err)
			}
			amount, err = sellAmount(ctx, d, w.PublicKey(), mint, amount)
			if err != nil {
				return emit(cmd, nil, err)
			}
			q, err := pricing.QuoteSell(amount, curve.SellReserves(), d.cfg.Fees.PumpBps)
			if err != nil {
				return emit(cmd, nil, err)
			}
			_, _, instrs, err := d.filler.Sell(w.PublicKey(), curve, amount, q.AmountOut, tf.slippageBps)
			if err != nil {
				return emit(cmd, nil, err)
			}
			out, err := execute(ctx, d.builder, w, instrs, tf.simulate)
			out["quote"] = q
			out["price_impact_bps"] = pricing.PriceImpactBps(curve.SellReserves(), amount, q.AmountOut)
			return emit(cmd, out, err)
		},
	}
	tf.register(cmd)
	cmd.Flags().Uint64Var(&amount, "amount", 0, "tokens to sell in base units (0 = whole balance)")
	return cmd
}

func newAmmCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amm",
		Short: "Trade a graduated token on the pump AMM",
	}
	cmd.AddCommand(newAmmBuyCmd(opts), newAmmSellCmd(opts))
	return cmd
}

func newAmmBuyCmd(opts *globalOpts) *cobra.Command {
	var (
		tf     tradeFlags
		solAmt float64
	)
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Buy from the canonical pump AMM pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ctx, cancel, err := setup(cmd, opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer cancel()

			mint, w, err := tf.load()
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer w.Zero()
			quoteIn, err := lamports("sol", solAmt, false)
			if err != nil {
				return emit(cmd, nil, err)
			}
			bal, err := d.rpc.GetBalance(ctx, w.PublicKey())
			if err != nil {
				return emit(cmd, nil, types.Transient("get balance", err))
			}
			if need := autofill.AmmBuyBalanceNeeded(quoteIn); bal < need {
				return emit(cmd, nil, types.Validationf("amm buy", "wallet holds %d lamports, needs %d", bal, need))
			}

			pool, err := d.filler.FetchPool(ctx, d.rpc, mint)
			if err != nil {
				return emit(cmd, nil, err)
			}
			_, _, instrs, q, err := d.filler.AmmBuy(w.PublicKey(), pool, quoteIn, tf.slippageBps)
			if err != nil {
				return emit(cmd, nil, err)
			}
			out, err := execute(ctx, ammBuilder(d), w, instrs, tf.simulate)
			out["quote"], out["pool"] = q, pool.Address
			return emit(cmd, out, err)
		},
	}
	tf.register(cmd)
	cmd.Flags().Float64Var(&solAmt, "sol", 0, "SOL to spend")
	_ = cmd.MarkFlagRequired("sol")
	return cmd
}

func newAmmSellCmd(opts *globalOpts) *cobra.Command {
	var (
		tf     tradeFlags
		amount uint64
	)
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Sell into the canonical pump AMM pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ctx, cancel, err := setup(cmd, opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer cancel()

			mint, w, err := tf.load()
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer w.Zero()

			pool, err := d.filler.FetchPool(ctx, d.rpc, mint)
			if err != nil {
				return emit(cmd, nil, err)
			}
			amount, err = sellAmount(ctx, d, w.PublicKey(), mint, amount)
			if err != nil {
				return emit(cmd, nil, err)
			}
			_, _, instrs, q, err := d.filler.AmmSell(w.PublicKey(), pool, amount, tf.slippageBps)
			if err != nil {
				return emit(cmd, nil, err)
			}
			out, err := execute(ctx, ammBuilder(d), w, instrs, tf.simulate)
			out["quote"], out["pool"] = q, pool.Address
			return emit(cmd, out, err)
		},
	}
	tf.register(cmd)
	cmd.Flags().Uint64Var(&amount, "amount", 0, "tokens to sell in base units (0 = whole balance)")
	return cmd
}

func newCurveCmd(opts *globalOpts) *cobra.Command {
	var mintStr string
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Show a bonding curve's reserves and spot price",
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
			curve, err := d.filler.FetchCurve(ctx, d.rpc, mint)
			if err != nil {
				return emit(cmd, nil, err)
			}
			return emit(cmd, fields{
				"address":        curve.Address,
				"creator":        curve.Curve.Creator,
				"complete":       curve.Curve.Complete,
				"legacy_layout":  curve.NeedsExtend,
				"virtual_sol":    curve.Curve.VirtualSolReserves,
				"virtual_tokens": curve.Curve.VirtualTokenReserves,
				"real_sol":       curve.Curve.RealSolReserves,
				"real_tokens":    curve.Curve.RealTokenReserves,
				"spot_price":     pricing.SpotPrice(curve.BuyReserves()),
			}, nil)
		},
	}
	cmd.Flags().StringVar(&mintStr, "mint", "", "mint pubkey")
	_ = cmd.MarkFlagRequired("mint")
	return cmd
}

// openCurve fetches a curve that is still trading.
func openCurve(ctx context.Context, d *runtimeDeps, mint solana.PublicKey) (autofill.CurveState, error) {
	curve, err := d.filler.FetchCurve(ctx, d.rpc, mint)
	if err != nil {
		return autofill.CurveState{}, err
	}
	if curve.Curve.Complete {
		return autofill.CurveState{}, types.Validationf("bonding curve", "curve for %s is complete; use the amm commands", mint)
	}
	return curve, nil
}

// sellAmount resolves 0 to the wallet's whole token balance.
func sellAmount(ctx context.Context, d *runtimeDeps, owner, mint solana.PublicKey, amount uint64) (uint64, error) {
	if amount > 0 {
		return amount, nil
	}
	ata, _, err := d.filler.Resolver().ATA(owner, mint)
	if err != nil {
		return 0, err
	}
	bal, err := autofill.FetchTokenBalance(ctx, d.rpc, ata)
	if err != nil {
		return 0, types.Transient("get token balance", err)
	}
	if bal == 0 {
		return 0, types.Validationf("sell", "%s holds no %s", owner, mint)
	}
	return bal, nil
}

// ammBuilder waits on the AMM's longer confirmation bound.
func ammBuilder(d *runtimeDeps) *txbuilder.Builder {
	b := *d.builder
	return b.WithConfirmSpec(d.cfg.Polling.AmmConfirmation)
}

// execute signs instrs with w as fee payer and either simulates or sends.
func execute(ctx context.Context, b *txbuilder.Builder, w wallet.Local, instrs []solana.Instruction, simulate bool) (fields, error) {
	out := fields{"wallet": w.PublicKey()}
	tx, err := b.BuildTransaction(ctx, w.PublicKey(), nil, instrs...)
	if err != nil {
		return out, err
	}
	if err := txbuilder.SignTransaction(ctx, tx, w); err != nil {
		return out, err
	}
	if simulate {
		res, err := b.Simulate(ctx, tx)
		if res != nil {
			out["logs"], out["units_consumed"] = res.Logs, res.UnitsConsumed
		}
		return out, err
	}
	sig, outcome, err := b.SendAndConfirm(ctx, tx)
	out["signature"], out["outcome"] = sig, outcome
	return out, err
}
