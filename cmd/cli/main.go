package main

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ninja0404/pump-bundler/pkg/autofill"
	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/confirm"
	"github.com/ninja0404/pump-bundler/pkg/jito"
	"github.com/ninja0404/pump-bundler/pkg/lookuptable"
	"github.com/ninja0404/pump-bundler/pkg/metadata"
	sdkrpc "github.com/ninja0404/pump-bundler/pkg/rpc"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var done reported
		if !errors.As(err, &done) {
			// Flag and argument errors never reach a RunE.
			_ = writeResult(root.OutOrStdout(), nil, err)
		}
		os.Exit(1)
	}
}

type globalOpts struct {
	configPath    string
	rpcURL        string
	commitment    string
	skipPreflight bool
	logLevel      string
	logFile       string
	timeoutSec    int
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:           "bundler",
		Short:         "pump.fun launch and snipe bundler",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (yaml|json|toml); BUNDLER_* env vars apply on top")
	root.PersistentFlags().StringVar(&opts.rpcURL, "rpc-url", "", "RPC endpoint (overrides config)")
	root.PersistentFlags().StringVar(&opts.commitment, "commitment", "", "RPC commitment level (overrides config)")
	root.PersistentFlags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "skip preflight checks on plain sends")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write logs to this file, rotated")
	root.PersistentFlags().IntVar(&opts.timeoutSec, "timeout-sec", 300, "overall command timeout in seconds")

	root.AddCommand(
		newConfigCmd(opts),
		newLaunchCmd(opts),
		newSnipeCmd(opts),
		newBuyCmd(opts),
		newSellCmd(opts),
		newAmmCmd(opts),
		newCurveCmd(opts),
		newWalletsCmd(opts),
		newFundSnipersCmd(opts),
		newMetadataCmd(opts),
		newLutCmd(opts),
		newVanityCmd(opts),
	)

	return root
}

func newConfigCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective config, secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return emit(cmd, nil, err)
			}
			return emit(cmd, fields{"config": config.Settings(cfg)}, nil)
		},
	}
}

// runtimeDeps is everything a command may reach for. Construction does no
// network I/O.
type runtimeDeps struct {
	cfg     config.Config
	log     zerolog.Logger
	rpc     *sdkrpc.Client
	poller  *confirm.Poller
	builder *txbuilder.Builder
	filler  *autofill.Filler
}

func newRuntime(cmd *cobra.Command, opts *globalOpts) (*runtimeDeps, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := newLogger(cmd.ErrOrStderr(), opts)
	cfg.RPC.Logger = log

	client := sdkrpc.NewClient(cfg.RPC)
	poller := confirm.NewPoller(client.Raw(), log)
	builder := txbuilder.NewBuilder(client, poller, cfg.Polling.Confirmation).WithSkipPreflight(opts.skipPreflight)
	return &runtimeDeps{
		cfg:     cfg,
		log:     log,
		rpc:     client,
		poller:  poller,
		builder: builder,
		filler:  autofill.New(cfg),
	}, nil
}

func (d *runtimeDeps) tables() *lookuptable.Manager {
	return lookuptable.NewManager(d.cfg, d.rpc, d.builder, d.log)
}

func (d *runtimeDeps) relay() *jito.Submitter {
	return jito.NewSubmitter(d.cfg, d.log)
}

func (d *runtimeDeps) tracker() *jito.Client {
	return jito.NewClient(d.cfg, d.log)
}

func (d *runtimeDeps) uploader() metadata.Uploader {
	return metadata.NewPinataUploader(d.cfg.Pinata, d.log)
}

func loadConfig(opts *globalOpts) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.rpcURL != "" {
		cfg.RPC.RPCURL = opts.rpcURL
	}
	if opts.commitment != "" {
		cfg.RPC.Commitment = opts.commitment
	}
	return cfg, nil
}

// newLogger writes to stderr, so stdout only ever carries the JSON result.
func newLogger(stderr io.Writer, opts *globalOpts) zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	if opts.logFile != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   opts.logFile,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		})
	}
	return zerolog.New(w).Level(parseLogLevel(opts.logLevel)).With().Timestamp().Logger()
}

func parseLogLevel(lvl string) zerolog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func commandContext(cmd *cobra.Command, opts *globalOpts) (context.Context, context.CancelFunc) {
	timeout := time.Duration(opts.timeoutSec) * time.Second
	if timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

// setup is the shared prologue of every networked command.
func setup(cmd *cobra.Command, opts *globalOpts) (*runtimeDeps, context.Context, context.CancelFunc, error) {
	deps, err := newRuntime(cmd, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := commandContext(cmd, opts)
	return deps, ctx, cancel, nil
}
