// Package lookuptable owns the one address lookup table a launch run uses:
// create and extend it, wait until it is usable, then deactivate and close it.
package lookuptable

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	lookup "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/confirm"
	"github.com/ninja0404/pump-bundler/pkg/pda"
	"github.com/ninja0404/pump-bundler/pkg/program/addresstable"
	"github.com/ninja0404/pump-bundler/pkg/txbuilder"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// extendChunk keeps create+extend inside one legacy transaction.
const extendChunk = 27

// NotDeactivated is the on-chain sentinel for a live table.
const NotDeactivated uint64 = math.MaxUint64

// State is where a table is in its lifecycle.
type State int

const (
	StateCreated State = iota
	StateExtended
	StatePendingActivation
	StateActive
	StateDeactivated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateExtended:
		return "extended"
	case StatePendingActivation:
		return "pending_activation"
	case StateActive:
		return "active"
	case StateDeactivated:
		return "deactivated"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Table is a handle on one lookup table.
type Table struct {
	Address          solana.PublicKey      `json:"address"`
	Addresses        solana.PublicKeySlice `json:"addresses"`
	ActivationSlot   uint64                `json:"activation_slot"`
	DeactivationSlot uint64                `json:"deactivation_slot"`
	State            State                 `json:"state"`
	Signatures       []solana.Signature    `json:"signatures,omitempty"`

	authority wallet.Signer
}

// Authority is the key that created the table and must sign its shutdown.
func (t *Table) Authority() solana.PublicKey {
	if t.authority == nil {
		return solana.PublicKey{}
	}
	return t.authority.PublicKey()
}

// StateReader is the read side of the cluster the manager needs.
// *rpc.Client satisfies it.
type StateReader interface {
	GetSlot(ctx context.Context) (uint64, error)
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
}

// Sender compiles and lands transactions. *txbuilder.Builder satisfies it.
type Sender interface {
	BuildTransaction(ctx context.Context, feePayer solana.PublicKey, tables map[solana.PublicKey]solana.PublicKeySlice, instructions ...solana.Instruction) (*solana.Transaction, error)
	SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, confirm.Outcome, error)
}

// Manager is the only writer of a run's table.
type Manager struct {
	reader  StateReader
	sender  Sender
	pda     pda.Resolver
	program solana.PublicKey
	system  solana.PublicKey
	polling config.Polling
	log     zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewManager wires a manager to cfg's lookup-table program and polling bounds.
func NewManager(cfg config.Config, reader StateReader, sender Sender, log zerolog.Logger) *Manager {
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}
	return &Manager{
		reader:  reader,
		sender:  sender,
		pda:     pda.NewResolver(cfg),
		program: cfg.Programs.LookupTable,
		system:  cfg.Programs.System,
		polling: cfg.Polling,
		log:     log.With().Str("component", "lookuptable").Logger(),
		sleep:   sleepCtx,
	}
}

// CreateAndPopulate creates a table owned by payer and extends it with
// addresses, deduplicated in first-seen order. Create and the first extend
// share one transaction; larger sets spill into follow-up extends.
func (m *Manager) CreateAndPopulate(ctx context.Context, payer wallet.Signer, addresses []solana.PublicKey) (*Table, error) {
	if payer == nil {
		return nil, types.ErrNilSigner
	}
	if m.reader == nil || m.sender == nil {
		return nil, types.ErrNilRPC
	}
	addrs := Dedupe(addresses)
	if len(addrs) == 0 {
		return nil, types.Validation("lookup table create", "no addresses")
	}
	if len(addrs) > addresstable.MaxAddresses {
		return nil, types.Validationf("lookup table create", "%d addresses exceeds capacity %d", len(addrs), addresstable.MaxAddresses)
	}

	slot, err := m.reader.GetSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup table create: recent slot: %w", err)
	}
	authority := payer.PublicKey()
	addr, bump, err := m.pda.LookupTable(authority, slot)
	if err != nil {
		return nil, err
	}
	create, err := addresstable.BuildCreate(m.program, addresstable.CreateAccounts{
		LookupTable:   addr,
		Authority:     authority,
		Payer:         authority,
		SystemProgram: m.system,
	}, addresstable.CreateArgs{RecentSlot: slot, BumpSeed: bump})
	if err != nil {
		return nil, types.Internal("lookup table create", err)
	}

	table := &Table{Address: addr, DeactivationSlot: NotDeactivated, State: StateCreated, authority: payer}
	for start := 0; start < len(addrs); start += extendChunk {
		end := min(start+extendChunk, len(addrs))
		extend, err := addresstable.BuildExtend(m.program, addresstable.ExtendAccounts{
			LookupTable:   addr,
			Authority:     authority,
			Payer:         authority,
			SystemProgram: m.system,
		}, addresstable.ExtendArgs{Addresses: addrs[start:end]})
		if err != nil {
			return table, types.Internal("lookup table extend", err)
		}
		instrs := []solana.Instruction{extend}
		if start == 0 {
			instrs = []solana.Instruction{create, extend}
		}
		sig, err := m.send(ctx, payer, instrs...)
		if err != nil {
			return table, fmt.Errorf("lookup table %s: %w", addr, err)
		}
		table.Signatures = append(table.Signatures, sig)
		table.Addresses = append(table.Addresses, addrs[start:end]...)
		table.State = StateExtended
		m.log.Info().Str("table", addr.String()).Int("addresses", len(table.Addresses)).Str("signature", sig.String()).Msg("table extended")
	}
	table.State = StatePendingActivation
	return table, nil
}

// AwaitActivation polls the table until its stored address list matches the
// handle in length and order and the cluster has moved past the extension slot.
func (m *Manager) AwaitActivation(ctx context.Context, table *Table) error {
	if table == nil {
		return types.Validation("lookup table activation", "nil table")
	}
	if table.State != StatePendingActivation && table.State != StateActive {
		return types.Validationf("lookup table activation", "table %s is %s", table.Address, table.State)
	}
	spec := m.polling.Activation
	attempts := 0
	op := func() (uint64, error) {
		attempts++
		st, err := m.readState(ctx, table.Address)
		if err != nil {
			return 0, err
		}
		if !sameAddresses(st.Addresses, table.Addresses) {
			return 0, fmt.Errorf("table holds %d of %d addresses", len(st.Addresses), len(table.Addresses))
		}
		slot, err := m.reader.GetSlot(ctx)
		if err != nil {
			return 0, err
		}
		if slot <= st.LastExtendedSlot {
			return 0, fmt.Errorf("slot %d not past extension slot %d", slot, st.LastExtendedSlot)
		}
		return slot, nil
	}
	slot, err := m.poll(ctx, "await lookup table activation", table.Address, op, spec, &attempts)
	if err != nil {
		return err
	}
	table.ActivationSlot = slot
	table.State = StateActive
	m.log.Info().Str("table", table.Address.String()).Uint64("slot", slot).Int("attempts", attempts).Msg("table active")
	return nil
}

// Deactivate sends the deactivate instruction. The table stays usable until
// AwaitDeactivation observes the deactivation slot.
func (m *Manager) Deactivate(ctx context.Context, table *Table) error {
	if err := m.checkOwned(table, "lookup table deactivate"); err != nil {
		return err
	}
	if table.State == StateClosed {
		return types.Validationf("lookup table deactivate", "table %s is closed", table.Address)
	}
	ix, err := addresstable.BuildDeactivate(m.program, addresstable.DeactivateAccounts{
		LookupTable: table.Address,
		Authority:   table.Authority(),
	})
	if err != nil {
		return types.Internal("lookup table deactivate", err)
	}
	sig, err := m.send(ctx, table.authority, ix)
	if err != nil {
		return fmt.Errorf("lookup table %s deactivate: %w", table.Address, err)
	}
	table.Signatures = append(table.Signatures, sig)
	m.log.Info().Str("table", table.Address.String()).Str("signature", sig.String()).Msg("table deactivation sent")
	return nil
}

// AwaitDeactivation polls until the table records a deactivation slot, then
// waits the settle delay.
func (m *Manager) AwaitDeactivation(ctx context.Context, table *Table) error {
	if table == nil {
		return types.Validation("lookup table deactivation", "nil table")
	}
	attempts := 0
	op := func() (uint64, error) {
		attempts++
		st, err := m.readState(ctx, table.Address)
		if err != nil {
			return 0, err
		}
		if st.DeactivationSlot == NotDeactivated {
			return 0, errors.New("deactivation slot not set")
		}
		return st.DeactivationSlot, nil
	}
	slot, err := m.poll(ctx, "await lookup table deactivation", table.Address, op, m.polling.Deactivation, &attempts)
	if err != nil {
		return err
	}
	table.DeactivationSlot = slot
	if err := m.sleep(ctx, m.polling.SettleDelay); err != nil {
		return fmt.Errorf("lookup table %s settle: %w", table.Address, err)
	}
	table.State = StateDeactivated
	return nil
}

// Close reclaims the table's rent to recipient. The table must already be
// observed as deactivated.
func (m *Manager) Close(ctx context.Context, table *Table, recipient solana.PublicKey) error {
	if err := m.checkOwned(table, "lookup table close"); err != nil {
		return err
	}
	if table.State != StateDeactivated {
		return types.Validationf("lookup table close", "table %s is %s, want deactivated", table.Address, table.State)
	}
	if recipient.IsZero() {
		recipient = table.Authority()
	}
	ix, err := addresstable.BuildClose(m.program, addresstable.CloseAccounts{
		LookupTable: table.Address,
		Authority:   table.Authority(),
		Recipient:   recipient,
	})
	if err != nil {
		return types.Internal("lookup table close", err)
	}
	sig, err := m.send(ctx, table.authority, ix)
	if err != nil {
		return fmt.Errorf("lookup table %s close: %w", table.Address, err)
	}
	table.Signatures = append(table.Signatures, sig)
	table.State = StateClosed
	m.log.Info().Str("table", table.Address.String()).Str("signature", sig.String()).Msg("table closed")
	return nil
}

// Release runs deactivate, await and close, returning rent to the authority.
func (m *Manager) Release(ctx context.Context, table *Table) error {
	if table != nil && table.State != StateDeactivated {
		if err := m.Deactivate(ctx, table); err != nil {
			return err
		}
		if err := m.AwaitDeactivation(ctx, table); err != nil {
			return err
		}
	}
	return m.Close(ctx, table, solana.PublicKey{})
}

// Open reads an existing table so it can be released outside the run that
// created it.
func (m *Manager) Open(ctx context.Context, address solana.PublicKey, authority wallet.Signer) (*Table, error) {
	if authority == nil {
		return nil, types.ErrNilSigner
	}
	st, err := m.readState(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("lookup table %s: %w", address, err)
	}
	if st.Authority != nil && !st.Authority.Equals(authority.PublicKey()) {
		return nil, types.Validationf("lookup table open", "table %s is owned by %s", address, st.Authority)
	}
	table := &Table{
		Address:          address,
		Addresses:        st.Addresses,
		DeactivationSlot: st.DeactivationSlot,
		State:            StateActive,
		authority:        authority,
	}
	if st.DeactivationSlot != NotDeactivated {
		table.State = StateDeactivated
	}
	return table, nil
}

// Lookup is the table in the form v0 message compilation takes.
func Lookup(table *Table) map[solana.PublicKey]solana.PublicKeySlice {
	if table == nil || len(table.Addresses) == 0 {
		return nil
	}
	return map[solana.PublicKey]solana.PublicKeySlice{table.Address: table.Addresses}
}

// Dedupe drops repeated and zero keys, keeping first-seen order.
func Dedupe(keys []solana.PublicKey) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{}, len(keys))
	out := make([]solana.PublicKey, 0, len(keys))
	for _, k := range keys {
		if k.IsZero() {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (m *Manager) send(ctx context.Context, signer wallet.Signer, instrs ...solana.Instruction) (solana.Signature, error) {
	tx, err := m.sender.BuildTransaction(ctx, signer.PublicKey(), nil, instrs...)
	if err != nil {
		return solana.Signature{}, err
	}
	if err := txbuilder.SignTransaction(ctx, tx, signer); err != nil {
		return solana.Signature{}, err
	}
	sig, _, err := m.sender.SendAndConfirm(ctx, tx)
	return sig, err
}

func (m *Manager) readState(ctx context.Context, address solana.PublicKey) (*lookup.AddressLookupTableState, error) {
	data, err := m.reader.GetAccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	st, err := lookup.DecodeAddressLookupTableState(data)
	if err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return st, nil
}

func (m *Manager) poll(ctx context.Context, op string, address solana.PublicKey, fn backoff.Operation[uint64], spec config.PollSpec, attempts *int) (uint64, error) {
	if spec.MaxAttempts <= 0 {
		return 0, types.Validationf(op, "max attempts must be positive, got %d", spec.MaxAttempts)
	}
	slot, err := backoff.Retry(ctx, fn,
		backoff.WithBackOff(backoff.NewConstantBackOff(spec.Interval)),
		backoff.WithMaxTries(uint(spec.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.log.Debug().Str("op", op).Str("table", address.String()).Int("attempt", *attempts).Dur("backoff", next).Err(err).Msg("table not ready")
		}),
	)
	if err == nil {
		return slot, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, fmt.Errorf("%s %s: %w", op, address, ctxErr)
	}
	m.log.Warn().Str("op", op).Str("table", address.String()).Int("attempts", *attempts).Err(err).Msg("table poll exhausted")
	return 0, types.Timeout(op, *attempts)
}

func (m *Manager) checkOwned(table *Table, op string) error {
	if table == nil {
		return types.Validation(op, "nil table")
	}
	if table.authority == nil {
		return types.Validationf(op, "table %s has no authority signer", table.Address)
	}
	if m.sender == nil {
		return types.ErrNilRPC
	}
	return nil
}

func sameAddresses(got, want solana.PublicKeySlice) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if !got[i].Equals(want[i]) {
			return false
		}
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
