package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ninja0404/pump-bundler/pkg/pricing"
	"github.com/ninja0404/pump-bundler/pkg/types"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// fields are the command-specific members of the result object.
type fields map[string]any

// reported marks an error whose result object is already on stdout.
type reported struct{ err error }

func (r reported) Error() string { return r.err.Error() }
func (r reported) Unwrap() error { return r.err }

// emit prints the single JSON result of a command and hands err back to
// cobra so the exit code is non-zero on failure.
func emit(cmd *cobra.Command, f fields, err error) error {
	if werr := writeResult(cmd.OutOrStdout(), f, err); werr != nil {
		return werr
	}
	if err != nil {
		return reported{err: err}
	}
	return nil
}

func writeResult(w io.Writer, f fields, err error) error {
	out := make(map[string]any, len(f)+2)
	for k, v := range f {
		out[k] = v
	}
	out["success"] = err == nil
	if err != nil {
		out["error"] = map[string]string{
			"kind":    types.KindOf(err).String(),
			"message": err.Error(),
		}
	}
	bz, merr := json.Marshal(out)
	if merr != nil {
		return fmt.Errorf("encode result: %w", merr)
	}
	_, werr := fmt.Fprintln(w, string(bz))
	return werr
}

// parsePubkey converts base58 string to PublicKey.
func parsePubkey(label, v string) (solana.PublicKey, error) {
	return types.ParsePublicKey(label, v)
}

// loadSigner accepts a solana-keygen JSON path or a base58 private key.
func loadSigner(label, v string) (wallet.Local, error) {
	if v == "" {
		return wallet.Local{}, types.NewValidationError(label, "is required")
	}
	if _, err := os.Stat(v); err == nil {
		return wallet.NewLocalFromKeygen(v)
	}
	if strings.HasSuffix(v, ".json") {
		return wallet.Local{}, types.Validationf("load "+label, "keypair file %s not found", v)
	}
	k, err := wallet.NewLocalFromBase58(v)
	if err != nil {
		return wallet.Local{}, types.Validationf("load "+label, "not a keypair file or base58 key: %v", err)
	}
	return k, nil
}

// loadWallets reads a wallets.json store, keeping the first limit entries
// when limit is positive.
func loadWallets(path string, limit int) ([]wallet.Local, error) {
	if path == "" {
		return nil, types.NewValidationError("wallets", "is required")
	}
	keys, err := wallet.LoadStore(path)
	if err != nil {
		return nil, types.Validationf("load wallets", "%v", err)
	}
	if len(keys) == 0 {
		return nil, types.ErrNoWallets
	}
	if limit > 0 && limit < len(keys) {
		wallet.ZeroAll(keys[limit:])
		keys = keys[:limit]
	}
	return keys, nil
}

// lamports converts a SOL flag value. Zero is allowed only when optional.
func lamports(label string, sol float64, optional bool) (uint64, error) {
	if sol < 0 {
		return 0, types.NewValidationError(label, "cannot be negative")
	}
	v := pricing.LamportsFromSOL(sol)
	if v == 0 && !optional {
		return 0, types.NewValidationError(label, "must be positive")
	}
	return v, nil
}

// copyKey detaches a key from its backing array, so wiping the copy leaves
// the original usable.
func copyKey(k wallet.Local) wallet.Local {
	return wallet.NewLocalFromPrivateKey(append(solana.PrivateKey(nil), k.PrivateKey()...))
}

func pubkeys(keys []wallet.Local) []solana.PublicKey {
	out := make([]solana.PublicKey, len(keys))
	for i, k := range keys {
		out[i] = k.PublicKey()
	}
	return out
}
