package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/ninja0404/pump-bundler/pkg/launch"
	"github.com/ninja0404/pump-bundler/pkg/pricing"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

func newWalletsCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "Manage the sniper wallet store",
	}
	cmd.AddCommand(
		newWalletsGenerateCmd(),
		newWalletsBalanceCmd(opts),
		newWalletsAmountsCmd(),
	)
	return cmd
}

func newWalletsGenerateCmd() *cobra.Command {
	var (
		count int
		out   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a wallets.json with fresh keypairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return emit(cmd, nil, types.NewValidationError("count", "must be positive"))
			}
			if _, err := os.Stat(out); err == nil && !force {
				return emit(cmd, nil, types.Validationf("wallets generate", "%s exists; pass --force to replace it", out))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return emit(cmd, nil, err)
			}
			keys, err := wallet.Generate(count)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer wallet.ZeroAll(keys)
			if err := wallet.SaveStore(out, keys); err != nil {
				return emit(cmd, nil, err)
			}
			return emit(cmd, fields{"path": out, "wallets": pubkeys(keys)}, nil)
		},
	}
	cmd.Flags().IntVar(&count, "count", 20, "number of wallets")
	cmd.Flags().StringVar(&out, "out", "wallets.json", "store path")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing store")
	return cmd
}

func newWalletsBalanceCmd(opts *globalOpts) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the SOL balance of every stored wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ctx, cancel, err := setup(cmd, opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer cancel()

			keys, err := loadWallets(path, 0)
			if err != nil {
				return emit(cmd, nil, err)
			}
			pubs := pubkeys(keys)
			wallet.ZeroAll(keys)

			type row struct {
				Pubkey   string  `json:"pubkey"`
				Lamports uint64  `json:"lamports"`
				SOL      float64 `json:"sol"`
			}
			rows := make([]row, 0, len(keys))
			var total uint64
			for _, pub := range pubs {
				bal, err := d.rpc.GetBalance(ctx, pub)
				if err != nil {
					return emit(cmd, fields{"balances": rows}, types.Transient("get balance", err))
				}
				total += bal
				rows = append(rows, row{Pubkey: pub.String(), Lamports: bal, SOL: pricing.SOLFromLamports(bal)})
			}
			return emit(cmd, fields{"balances": rows, "total_lamports": total}, nil)
		},
	}
	cmd.Flags().StringVar(&path, "wallets", "wallets.json", "store path")
	return cmd
}

func newWalletsAmountsCmd() *cobra.Command {
	var (
		count    int
		totalSOL float64
	)
	cmd := &cobra.Command{
		Use:   "amounts",
		Short: "Preview a randomized split of a buy budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := lamports("total-sol", totalSOL, false)
			if err != nil {
				return emit(cmd, nil, err)
			}
			amounts, err := wallet.SniperAmounts(count, total, nil)
			if err != nil {
				return emit(cmd, nil, err)
			}
			return emit(cmd, fields{
				"amounts":        amounts,
				"funding_needed": wallet.FundingNeeded(count, total),
			}, nil)
		},
	}
	cmd.Flags().IntVar(&count, "count", 20, "number of snipers")
	cmd.Flags().Float64Var(&totalSOL, "total-sol", 0, "total SOL to split")
	_ = cmd.MarkFlagRequired("total-sol")
	return cmd
}

func newFundSnipersCmd(opts *globalOpts) *cobra.Command {
	var (
		funderKey string
		path      string
		limit     int
		totalSOL  float64
	)
	cmd := &cobra.Command{
		Use:   "fund-snipers",
		Short: "Send each sniper its buy plus fee reserve through a fresh mixer wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ctx, cancel, err := setup(cmd, opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer cancel()

			funder, err := loadSigner("funder", funderKey)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer funder.Zero()
			keys, err := loadWallets(path, limit)
			if err != nil {
				return emit(cmd, nil, err)
			}
			snipers := pubkeys(keys)
			wallet.ZeroAll(keys)
			total, err := lamports("total-sol", totalSOL, false)
			if err != nil {
				return emit(cmd, nil, err)
			}

			plan, err := launch.PlanFunding(snipers, total, nil)
			if err != nil {
				return emit(cmd, nil, err)
			}
			done, err := launch.NewFunder(d.cfg, d.rpc, d.builder, d.log).FundSnipers(ctx, funder, plan)
			return emit(cmd, fields{"plan": plan, "funded": done}, err)
		},
	}
	cmd.Flags().StringVar(&funderKey, "funder", "", "funding keypair file or base58 key")
	cmd.Flags().StringVar(&path, "wallets", "wallets.json", "sniper store")
	cmd.Flags().IntVar(&limit, "snipers", 0, "fund only the first N wallets (0 = all)")
	cmd.Flags().Float64Var(&totalSOL, "total-sol", 0, "total buy budget across the snipers")
	_ = cmd.MarkFlagRequired("funder")
	_ = cmd.MarkFlagRequired("total-sol")
	return cmd
}
