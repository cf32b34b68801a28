package txbuilder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/confirm"
	wraprpc "github.com/ninja0404/pump-bundler/pkg/rpc"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// Builder ties together RPC, signing, and confirmation.
type Builder struct {
	client        *wraprpc.Client
	poller        *confirm.Poller
	confirmSpec   config.PollSpec
	commitment    solanarpc.CommitmentType
	skipPreflight bool
}

// NewBuilder constructs a builder that confirms through poller using spec.
func NewBuilder(client *wraprpc.Client, poller *confirm.Poller, spec config.PollSpec) *Builder {
	commitment := solanarpc.CommitmentConfirmed
	if client != nil {
		commitment = client.Commitment()
	}
	return &Builder{client: client, poller: poller, confirmSpec: spec, commitment: commitment}
}

// WithSkipPreflight configures whether to skip preflight.
func (b *Builder) WithSkipPreflight(skip bool) *Builder {
	b.skipPreflight = skip
	return b
}

// WithConfirmSpec overrides the poll bound used by SendAndConfirm.
func (b *Builder) WithConfirmSpec(spec config.PollSpec) *Builder {
	b.confirmSpec = spec
	return b
}

// Compile builds an unsigned transaction against blockhash. With tables it
// produces a v0 message that resolves table members through lookups.
func Compile(blockhash solana.Hash, feePayer solana.PublicKey, tables map[solana.PublicKey]solana.PublicKeySlice, instructions ...solana.Instruction) (*solana.Transaction, error) {
	if len(instructions) == 0 {
		return nil, types.ErrNoInstructions
	}
	if feePayer.IsZero() {
		return nil, types.ErrNilFeePayer
	}
	opts := []solana.TransactionOption{solana.TransactionPayer(feePayer)}
	if len(tables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(tables))
	}
	tx, err := solana.NewTransaction(instructions, blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	return tx, nil
}

// BuildTransaction compiles instructions against a fresh blockhash.
func (b *Builder) BuildTransaction(ctx context.Context, feePayer solana.PublicKey, tables map[solana.PublicKey]solana.PublicKeySlice, instructions ...solana.Instruction) (*solana.Transaction, error) {
	if b.client == nil {
		return nil, types.ErrNilRPC
	}
	latest, err := b.client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}
	return Compile(latest.Value.Blockhash, feePayer, tables, instructions...)
}

// SignTransaction signs using the provided signers in account-key order.
func SignTransaction(ctx context.Context, tx *solana.Transaction, signers ...wallet.Signer) error {
	if tx == nil {
		return fmt.Errorf("transaction is nil")
	}
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 {
		return nil
	}
	if len(tx.Message.AccountKeys) < required {
		return fmt.Errorf("not enough account keys for required signatures")
	}

	signerMap := make(map[solana.PublicKey]wallet.Signer, len(signers))
	for _, s := range signers {
		signerMap[s.PublicKey()] = s
	}

	messageBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	tx.Signatures = make([]solana.Signature, required)
	for i := 0; i < required; i++ {
		pk := tx.Message.AccountKeys[i]
		signer, ok := signerMap[pk]
		if !ok {
			return types.Validationf("sign transaction", "missing signer for %s", pk)
		}
		sig, err := signer.SignMessage(ctx, messageBytes)
		if err != nil {
			return fmt.Errorf("sign message for %s: %w", pk, err)
		}
		tx.Signatures[i] = sig
	}
	return nil
}

// SerializedSize is the wire length of a signed transaction.
func SerializedSize(tx *solana.Transaction) (int, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("serialize transaction: %w", err)
	}
	return len(raw), nil
}

// Send sends a signed transaction via RPC.
func (b *Builder) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if b.client == nil {
		return solana.Signature{}, types.ErrNilRPC
	}
	opts := solanarpc.TransactionOpts{
		SkipPreflight:       b.skipPreflight,
		PreflightCommitment: b.commitment,
	}
	sig, err := b.client.SendTransaction(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

// SendAndConfirm sends a signed transaction and polls until it settles.
// A failed or unconfirmed transaction comes back as a tagged error along with its signature.
func (b *Builder) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, confirm.Outcome, error) {
	sig, err := b.Send(ctx, tx)
	if err != nil {
		return solana.Signature{}, confirm.Outcome{}, err
	}
	if b.poller == nil {
		return sig, confirm.Outcome{}, fmt.Errorf("confirm %s: poller is not configured", sig)
	}
	out, err := b.poller.PollSpec(ctx, sig, b.confirmSpec)
	if err != nil {
		return sig, out, err
	}
	return sig, out, out.Err("confirm " + sig.String())
}

// BuildSignSendAndConfirm builds, signs, sends, and waits for confirmation.
// feePayer signs first; extra signers cover any other required signatures.
func (b *Builder) BuildSignSendAndConfirm(ctx context.Context, feePayer wallet.Signer, signers []wallet.Signer, instructions ...solana.Instruction) (solana.Signature, error) {
	if feePayer == nil {
		return solana.Signature{}, types.ErrNilFeePayer
	}
	tx, err := b.BuildTransaction(ctx, feePayer.PublicKey(), nil, instructions...)
	if err != nil {
		return solana.Signature{}, err
	}
	all := append([]wallet.Signer{feePayer}, signers...)
	if err := SignTransaction(ctx, tx, all...); err != nil {
		return solana.Signature{}, err
	}
	sig, _, err := b.SendAndConfirm(ctx, tx)
	return sig, err
}

// Simulate runs a signed transaction through simulateTransaction and decodes
// program errors from the logs.
func (b *Builder) Simulate(ctx context.Context, tx *solana.Transaction) (*solanarpc.SimulateTransactionResult, error) {
	if b.client == nil {
		return nil, types.ErrNilRPC
	}
	res, err := b.client.SimulateTransaction(ctx, tx, &solanarpc.SimulateTransactionOpts{
		Commitment:             b.commitment,
		ReplaceRecentBlockhash: true,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("simulate: empty response")
	}
	if res.Value.Err != nil {
		return res.Value, types.ParseSimulationError(res.Value.Err, res.Value.Logs)
	}
	return res.Value, nil
}
