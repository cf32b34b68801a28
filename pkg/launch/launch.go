// Package launch runs one bundle end to end: resolve the curve, plan and
// price every buy, stand up the lookup table, assemble, submit to the block
// engines, watch the bundle, then release the table and wipe the keys.
//
// The same pipeline serves a fresh token launch (creation unit first) and a
// snipe on an existing curve.
package launch

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/autofill"
	"github.com/ninja0404/pump-bundler/pkg/bundle"
	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/confirm"
	"github.com/ninja0404/pump-bundler/pkg/constants"
	"github.com/ninja0404/pump-bundler/pkg/jito"
	"github.com/ninja0404/pump-bundler/pkg/lookuptable"
	"github.com/ninja0404/pump-bundler/pkg/metadata"
	"github.com/ninja0404/pump-bundler/pkg/pricing"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// releaseTimeout bounds table cleanup once the caller's context is gone.
const releaseTimeout = 2 * time.Minute

// Chain is the cluster read surface. *rpc.Client satisfies it.
type Chain interface {
	autofill.AccountReader
	GetLatestBlockhash(ctx context.Context) (*solanarpc.GetLatestBlockhashResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// Tables owns the run's lookup table. *lookuptable.Manager satisfies it.
type Tables interface {
	CreateAndPopulate(ctx context.Context, payer wallet.Signer, addresses []solana.PublicKey) (*lookuptable.Table, error)
	AwaitActivation(ctx context.Context, table *lookuptable.Table) error
	Release(ctx context.Context, table *lookuptable.Table) error
}

// Relay submits a bundle. *jito.Submitter satisfies it.
type Relay interface {
	Submit(ctx context.Context, txs []jito.Labeled) (jito.BundleResult, error)
}

// Tracker follows a submitted bundle. *jito.Client satisfies it.
type Tracker interface {
	PollBundle(ctx context.Context, id string, interval time.Duration, maxAttempts int) (jito.BundleOutcome, error)
	RandomTipAccount() solana.PublicKey
}

// AccountWatcher waits for an account to appear. *confirm.Poller satisfies it.
type AccountWatcher interface {
	AwaitAccount(ctx context.Context, key solana.PublicKey, interval time.Duration, maxAttempts int) (confirm.Outcome, error)
}

// Deps are the collaborators of a Pipeline. Uploader is only needed for
// launches whose metadata has not been pinned yet.
type Deps struct {
	Chain    Chain
	Tables   Tables
	Relay    Relay
	Tracker  Tracker
	Accounts AccountWatcher
	Uploader metadata.Uploader
}

// Pipeline is the one launch/snipe flow.
type Pipeline struct {
	cfg       config.Config
	deps      Deps
	filler    *autofill.Filler
	assembler *bundle.Assembler
	log       zerolog.Logger
}

// New wires a pipeline.
func New(cfg config.Config, deps Deps, log zerolog.Logger) *Pipeline {
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}
	log = log.With().Str("component", "launch").Logger()
	return &Pipeline{
		cfg:       cfg,
		deps:      deps,
		filler:    autofill.New(cfg),
		assembler: bundle.NewAssembler(cfg, log),
		log:       log,
	}
}

// Creation asks for a new token ahead of the snipers.
type Creation struct {
	Deployer wallet.Local
	Mint     wallet.Local
	Token    metadata.Token
	// URI skips the upload when the metadata is already pinned.
	URI string
	// DevBuy is the deployer's own buy in lamports; 0 skips it.
	DevBuy uint64
}

// Request describes one run. Set Create for a launch or Mint for a snipe.
// Amounts[i] is the lamports Snipers[i] spends.
type Request struct {
	Mint        solana.PublicKey
	Create      *Creation
	Snipers     []wallet.Local
	Amounts     []uint64
	SlippageBps uint64
	// TipLamports overrides the configured relay tip when non-zero.
	TipLamports uint64
}

// Report is what a run did. It is returned even when the run fails part way.
type Report struct {
	Mint        solana.PublicKey     `json:"mint"`
	Creator     solana.PublicKey     `json:"creator"`
	URI         string               `json:"uri,omitempty"`
	LookupTable *lookuptable.Table   `json:"lookup_table,omitempty"`
	Units       []string             `json:"units"`
	BundleIDs   []string             `json:"bundle_ids"`
	Accepted    []jito.Accepted      `json:"accepted,omitempty"`
	Failures    []jito.Failure       `json:"failures,omitempty"`
	Dropped     int                  `json:"dropped"`
	Quotes      []bundle.WalletQuote `json:"quotes"`
	Reserves    *pricing.Reserves    `json:"reserves_after,omitempty"`
	Outcome     *jito.BundleOutcome  `json:"outcome,omitempty"`
	TokenSeen   *confirm.Outcome     `json:"token_visible,omitempty"`
	Release     string               `json:"release_error,omitempty"`
}

// Run executes the pipeline. Keys in req are wiped before it returns, and a
// table created by the run is released whatever happens after it.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	rep := &Report{}
	defer p.wipe(req)
	if err := p.check(req); err != nil {
		return rep, err
	}

	// resolve
	start, creator, err := p.resolve(ctx, &req, rep)
	if err != nil {
		return rep, err
	}
	rep.Mint, rep.Creator = req.mint(), creator

	// plan
	type sniper struct {
		key    wallet.Local
		amount uint64
	}
	snipers := make([]sniper, len(req.Snipers))
	for i := range req.Snipers {
		snipers[i] = sniper{key: req.Snipers[i], amount: req.Amounts[i]}
	}
	part := bundle.Plan(snipers, p.cfg.Limits.MaxPerUnit, p.cfg.Limits.MaxUnits)
	rep.Dropped = part.Dropped
	if part.Dropped > 0 {
		p.log.Warn().Int("dropped", part.Dropped).Int("capacity", p.cfg.Limits.MaxPerUnit*p.cfg.Limits.MaxUnits).Msg("snipers beyond bundle capacity are not planned")
	}
	kept := part.Kept()

	// simulate
	var buys []uint64
	if req.Create != nil && req.Create.DevBuy > 0 {
		buys = append(buys, req.Create.DevBuy)
	}
	for _, s := range kept {
		buys = append(buys, s.amount)
	}
	quotes, end, err := bundle.Simulate(start, buys, p.cfg.Fees.PumpBps)
	if err != nil {
		return rep, err
	}
	rep.Quotes, rep.Reserves = quotes, &end

	var create *bundle.Creation
	if req.Create != nil {
		create = &bundle.Creation{
			Deployer: req.Create.Deployer,
			Mint:     req.Create.Mint,
			Params:   autofill.CreateParams{Name: req.Create.Token.Name, Symbol: req.Create.Token.Symbol, URI: rep.URI},
		}
		if req.Create.DevBuy > 0 {
			create.DevBuy, quotes = quotes[0], quotes[1:]
		}
	}
	groups := make([][]bundle.Buyer, len(part.Groups))
	qi := 0
	for gi, g := range part.Groups {
		for _, s := range g {
			groups[gi] = append(groups[gi], bundle.Buyer{Wallet: s.key, Quote: quotes[qi]})
			qi++
		}
	}

	tip := req.TipLamports
	if tip == 0 {
		tip = p.cfg.Relay.TipLamports
	}
	if err := p.checkFunding(ctx, create, groups, tip); err != nil {
		return rep, err
	}

	// lookup table
	buyers := make([]solana.PublicKey, len(kept))
	for i, s := range kept {
		buyers[i] = s.key.PublicKey()
	}
	addrs, err := p.tableAddresses(req.mint(), creator, buyers)
	if err != nil {
		return rep, err
	}
	table, err := p.deps.Tables.CreateAndPopulate(ctx, req.payer(), addrs)
	if err != nil {
		return rep, fmt.Errorf("create lookup table: %w", err)
	}
	rep.LookupTable = table
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if rerr := p.deps.Tables.Release(rctx, table); rerr != nil {
			p.log.Error().Err(rerr).Str("table", table.Address.String()).Msg("lookup table release failed")
			rep.Release = rerr.Error()
		}
	}()
	if err := p.deps.Tables.AwaitActivation(ctx, table); err != nil {
		return rep, fmt.Errorf("await lookup table: %w", err)
	}

	// assemble
	latest, err := p.deps.Chain.GetLatestBlockhash(ctx)
	if err != nil {
		return rep, types.Transient("get latest blockhash", err)
	}
	units, err := p.assembler.Build(ctx, bundle.BuildInput{
		Mint:        req.mint(),
		Creator:     creator,
		Groups:      groups,
		Create:      create,
		SlippageBps: req.SlippageBps,
		Blockhash:   latest.Value.Blockhash,
		Table:       lookuptable.Lookup(table),
		TipLamports: tip,
		TipAccount:  p.deps.Tracker.RandomTipAccount(),
	})
	if err != nil {
		return rep, err
	}
	for _, u := range units {
		rep.Units = append(rep.Units, u.Label)
	}

	// submit
	res, err := p.deps.Relay.Submit(ctx, jito.FromUnits(units))
	rep.Accepted, rep.Failures, rep.BundleIDs = res.Accepted, res.Failures, res.BundleIDs()
	if err != nil {
		return rep, err
	}

	// poll
	spec := p.cfg.Polling.Bundle
	out, err := p.deps.Tracker.PollBundle(ctx, rep.BundleIDs[0], spec.Interval, spec.MaxAttempts)
	if err != nil {
		return rep, err
	}
	rep.Outcome = &out
	p.log.Info().Str("bundle_id", out.BundleID).Str("status", string(out.Status)).Int("attempts", out.Attempts).Msg("bundle settled")
	if err := out.Err(); err != nil {
		return rep, err
	}
	if req.Create != nil {
		vis := p.cfg.Polling.TokenVisibility
		seen, err := p.deps.Accounts.AwaitAccount(ctx, req.mint(), vis.Interval, vis.MaxAttempts)
		if err != nil {
			return rep, err
		}
		rep.TokenSeen = &seen
		if err := seen.Err("token visibility"); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (r Request) mint() solana.PublicKey {
	if r.Create != nil {
		return r.Create.Mint.PublicKey()
	}
	return r.Mint
}

// payer is the table authority: the deployer, else the first sniper.
func (r Request) payer() wallet.Signer {
	if r.Create != nil {
		return r.Create.Deployer
	}
	return r.Snipers[0]
}

func (p *Pipeline) check(req Request) error {
	if req.Create == nil && len(req.Snipers) == 0 {
		return types.ErrNoWallets
	}
	if req.Create == nil && req.Mint.IsZero() {
		return types.Validation("launch", "mint is required for a snipe")
	}
	if len(req.Amounts) != len(req.Snipers) {
		return types.Validationf("launch", "%d amounts for %d snipers", len(req.Amounts), len(req.Snipers))
	}
	if err := types.ValidateSlippage(req.SlippageBps); err != nil {
		return err
	}
	if c := req.Create; c != nil {
		if c.Deployer.PublicKey().Equals(c.Mint.PublicKey()) {
			return types.Validation("launch", "deployer and mint must be different keys")
		}
		if c.URI == "" {
			if err := c.Token.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve fills in the metadata URI for a launch, or reads the live curve for
// a snipe, and returns buy-oriented starting reserves and the coin creator.
func (p *Pipeline) resolve(ctx context.Context, req *Request, rep *Report) (pricing.Reserves, solana.PublicKey, error) {
	if c := req.Create; c != nil {
		rep.URI = c.URI
		if rep.URI == "" {
			if p.deps.Uploader == nil {
				return pricing.Reserves{}, solana.PublicKey{}, types.Validation("launch", "metadata uri is empty and no uploader is configured")
			}
			uri, err := p.deps.Uploader.Upload(ctx, c.Token)
			if err != nil {
				return pricing.Reserves{}, solana.PublicKey{}, fmt.Errorf("upload metadata: %w", err)
			}
			rep.URI = uri
		}
		start := pricing.Reserves{Base: p.cfg.Curve.VirtualSolReserves, Quote: p.cfg.Curve.VirtualTokenReserves}
		return start, c.Deployer.PublicKey(), nil
	}

	curve, err := p.filler.FetchCurve(ctx, p.deps.Chain, req.Mint)
	if err != nil {
		return pricing.Reserves{}, solana.PublicKey{}, err
	}
	if curve.Curve.Complete {
		return pricing.Reserves{}, solana.PublicKey{}, types.Validationf("launch", "bonding curve for %s is complete; trade it on the AMM", req.Mint)
	}
	return curve.BuyReserves(), curve.Curve.Creator, nil
}

// checkFunding rejects a run where a wallet cannot cover its buy plus the
// rent of its token account. The wallet carrying the launch fee and the tip
// needs those too.
func (p *Pipeline) checkFunding(ctx context.Context, create *bundle.Creation, groups [][]bundle.Buyer, tip uint64) error {
	type need struct {
		key      solana.PublicKey
		lamports uint64
	}
	var (
		needs []need
		total uint64
	)
	if create != nil {
		needs = append(needs, need{create.Deployer.PublicKey(), create.DevBuy.SolIn + constants.ATACreateFeeLamports})
		total += create.DevBuy.SolIn
	}
	for _, g := range groups {
		for _, b := range g {
			needs = append(needs, need{b.Wallet.PublicKey(), b.Quote.SolIn + constants.ATACreateFeeLamports})
			total += b.Quote.SolIn
		}
	}
	// Fee and tip ride in the first buy group, else in the creation unit.
	carrier := 0
	if create != nil && len(groups) > 0 {
		carrier = 1
	}
	needs[carrier].lamports += total*p.cfg.Fees.TransferBps/constants.BasisPointsDivisor + tip

	for _, n := range needs {
		bal, err := p.deps.Chain.GetBalance(ctx, n.key)
		if err != nil {
			return types.Transient("get balance", err)
		}
		if bal < n.lamports {
			return types.Validationf("launch", "wallet %s holds %d lamports, needs %d", n.key, bal, n.lamports)
		}
	}
	return nil
}

// tableAddresses lists every non-signer account the units touch. Programs
// are left out since an invoked program cannot come from a table.
func (p *Pipeline) tableAddresses(mint, creator solana.PublicKey, buyers []solana.PublicKey) ([]solana.PublicKey, error) {
	r := p.filler.Resolver()
	curve, _, err := r.BondingCurve(mint)
	if err != nil {
		return nil, err
	}
	assoc, _, err := r.AssociatedBondingCurve(mint)
	if err != nil {
		return nil, err
	}
	vault, _, err := r.CreatorVault(creator)
	if err != nil {
		return nil, err
	}
	addrs := []solana.PublicKey{
		mint, curve, assoc, vault,
		p.cfg.Accounts.Global,
		p.cfg.Accounts.FeeRecipient,
		p.cfg.Accounts.EventAuthority,
		p.cfg.Accounts.TransferWallet,
	}
	for _, b := range buyers {
		ata, _, err := r.ATA(b, mint)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, ata)
	}
	return addrs, nil
}

func (p *Pipeline) wipe(req Request) {
	wallet.ZeroAll(req.Snipers)
	if req.Create != nil {
		req.Create.Deployer.Zero()
		req.Create.Mint.Zero()
	}
}
