package wallet

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/goccy/go-json"
	"github.com/mr-tron/base58"
)

// StoreEntry is one wallet in wallets.json.
type StoreEntry struct {
	PubKey  string `json:"pubkey"`
	PrivKey string `json:"privkey"`
}

// StoreFile is the on-disk layout of wallets.json.
type StoreFile struct {
	Wallets []StoreEntry `json:"wallets"`
}

// LoadStore reads wallets.json and returns one Local per entry, in file order.
// Each privkey must decode to 64 bytes whose public half equals pubkey.
func LoadStore(path string) ([]Local, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet store: %w", err)
	}
	return ParseStore(raw)
}

// ParseStore decodes wallets.json content.
func ParseStore(raw []byte) ([]Local, error) {
	var f StoreFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode wallet store: %w", err)
	}
	out := make([]Local, 0, len(f.Wallets))
	for i, e := range f.Wallets {
		key, err := decodePrivateKey(e.PrivKey)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: %w", i, err)
		}
		pub, err := solana.PublicKeyFromBase58(e.PubKey)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: invalid pubkey: %w", i, err)
		}
		if !key.PublicKey().Equals(pub) {
			return nil, fmt.Errorf("wallet %d: pubkey %s does not match private key", i, pub)
		}
		out = append(out, Local{key: key})
	}
	return out, nil
}

// SaveStore writes keys to path with owner-only permissions.
func SaveStore(path string, keys []Local) error {
	f := StoreFile{Wallets: make([]StoreEntry, 0, len(keys))}
	for _, k := range keys {
		f.Wallets = append(f.Wallets, StoreEntry{
			PubKey:  k.PublicKey().String(),
			PrivKey: base58.Encode(k.key),
		})
	}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode wallet store: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write wallet store: %w", err)
	}
	return nil
}

func decodePrivateKey(s string) (solana.PrivateKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode base58 key: %w", err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("decode base58 key: want 64 bytes, got %d", len(raw))
	}
	return solana.PrivateKey(raw), nil
}
