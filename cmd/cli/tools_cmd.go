package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ninja0404/pump-bundler/pkg/metadata"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/vanity"
)

func newMetadataCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Token metadata",
	}
	var path string
	upload := &cobra.Command{
		Use:   "upload",
		Short: "Pin the image and metadata json to IPFS",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ctx, cancel, err := setup(cmd, opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer cancel()

			token, err := metadata.Load(path)
			if err != nil {
				return emit(cmd, nil, err)
			}
			uri, err := d.uploader().Upload(ctx, token)
			return emit(cmd, fields{"uri": uri}, err)
		},
	}
	upload.Flags().StringVar(&path, "metadata", "", "token metadata json")
	_ = upload.MarkFlagRequired("metadata")
	cmd.AddCommand(upload)
	return cmd
}

func newLutCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lut",
		Short: "Address lookup tables",
	}
	var addrStr, authorityKey string
	release := &cobra.Command{
		Use:   "release",
		Short: "Deactivate and close a table left behind by an interrupted run",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ctx, cancel, err := setup(cmd, opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer cancel()

			addr, err := parsePubkey("address", addrStr)
			if err != nil {
				return emit(cmd, nil, err)
			}
			authority, err := loadSigner("authority", authorityKey)
			if err != nil {
				return emit(cmd, nil, err)
			}
			defer authority.Zero()

			m := d.tables()
			table, err := m.Open(ctx, addr, authority)
			if err != nil {
				return emit(cmd, nil, err)
			}
			err = m.Release(ctx, table)
			return emit(cmd, fields{"table": table}, err)
		},
	}
	release.Flags().StringVar(&addrStr, "address", "", "table address")
	release.Flags().StringVar(&authorityKey, "authority", "", "table authority keypair file or base58 key")
	_ = release.MarkFlagRequired("address")
	_ = release.MarkFlagRequired("authority")
	cmd.AddCommand(release)
	return cmd
}

func newVanityCmd(opts *globalOpts) *cobra.Command {
	var (
		prefix   string
		suffix   string
		workers  int
		timeout  time.Duration
		fold     bool
		poolPath string
		fill     int
	)
	cmd := &cobra.Command{
		Use:   "vanity",
		Short: "Search for mint keys ending in a vanity suffix",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd.ErrOrStderr(), opts)
			ctx, cancel := commandContext(cmd, opts)
			defer cancel()

			vo := vanity.Options{Prefix: prefix, Suffix: suffix, Workers: workers, Timeout: timeout, CaseInsensitive: fold}
			if poolPath == "" {
				res, err := vanity.Generate(ctx, vo)
				if err != nil {
					return emit(cmd, nil, err)
				}
				defer res.Key.Zero()
				// The key is printed once and never stored.
				return emit(cmd, fields{
					"pubkey":   res.Key.PublicKey(),
					"privkey":  res.Key.PrivateKey().String(),
					"attempts": res.Attempts,
					"took_ms":  res.Duration.Milliseconds(),
				}, nil)
			}

			if fill <= 0 {
				return emit(cmd, nil, types.NewValidationError("fill", "must be positive with --pool"))
			}
			pool, err := vanity.LoadPool(poolPath, log)
			if err != nil {
				return emit(cmd, nil, err)
			}
			ferr := pool.Fill(ctx, fill, vo)
			// Keys found before a cancel are still worth keeping.
			if err := pool.Save(poolPath); err != nil {
				return emit(cmd, fields{"pool": pool.Stats()}, err)
			}
			return emit(cmd, fields{"pool": pool.Stats(), "path": poolPath}, ferr)
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "required address prefix")
	cmd.Flags().StringVar(&suffix, "suffix", vanity.DefaultSuffix, "required address suffix")
	cmd.Flags().IntVar(&workers, "workers", 0, "search goroutines (0 = NumCPU)")
	cmd.Flags().DurationVar(&timeout, "search-timeout", 0, "give up after this long per key (0 = no limit)")
	cmd.Flags().BoolVar(&fold, "ignore-case", false, "match case-insensitively")
	cmd.Flags().StringVar(&poolPath, "pool", "", "fill this vanity pool store instead of printing one key")
	cmd.Flags().IntVar(&fill, "fill", 10, "keep searching until the pool holds this many keys")
	return cmd
}
