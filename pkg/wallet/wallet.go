package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Signer performs detached signatures for transaction messages.
type Signer interface {
	PublicKey() solana.PublicKey
	SignMessage(ctx context.Context, message []byte) (solana.Signature, error)
}

// Local wraps a keypair held in process memory.
type Local struct {
	key solana.PrivateKey
}

// NewLocalFromKeygen loads a solana-keygen JSON file.
func NewLocalFromKeygen(path string) (Local, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return Local{}, fmt.Errorf("load keypair: %w", err)
	}
	return Local{key: key}, nil
}

// NewLocalFromBase58 constructs a local signer from a base58-encoded 64-byte key.
func NewLocalFromBase58(privateKey string) (Local, error) {
	key, err := decodePrivateKey(privateKey)
	if err != nil {
		return Local{}, err
	}
	return Local{key: key}, nil
}

// NewLocalFromPrivateKey constructs a local signer from an existing private key.
func NewLocalFromPrivateKey(key solana.PrivateKey) Local {
	return Local{key: key}
}

// Generate creates n fresh keypairs.
func Generate(n int) ([]Local, error) {
	out := make([]Local, 0, n)
	for i := 0; i < n; i++ {
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generate keypair %d: %w", i, err)
		}
		out = append(out, Local{key: key})
	}
	return out, nil
}

// PublicKey returns the associated public key.
func (l Local) PublicKey() solana.PublicKey {
	return l.key.PublicKey()
}

// PrivateKey exposes the raw key for callers that need solana-go signing helpers.
func (l Local) PrivateKey() solana.PrivateKey {
	return l.key
}

// SignMessage signs the provided message bytes.
func (l Local) SignMessage(ctx context.Context, message []byte) (solana.Signature, error) {
	select {
	case <-ctx.Done():
		return solana.Signature{}, ctx.Err()
	default:
	}
	if len(l.key) != 64 || wiped(l.key) {
		return solana.Signature{}, fmt.Errorf("sign message: key material is missing or wiped")
	}
	sig, err := l.key.Sign(message)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign message: %w", err)
	}
	return sig, nil
}

// Zero overwrites the private key bytes in place. Every copy of this Local
// shares the backing array, so all of them stop signing afterwards.
func (l Local) Zero() {
	for i := range l.key {
		l.key[i] = 0
	}
}

// ZeroAll wipes every keypair in the list.
func ZeroAll(keys []Local) {
	for _, k := range keys {
		k.Zero()
	}
}

// Signers adapts a slice of keypairs to the Signer interface.
func Signers(keys []Local) []Signer {
	out := make([]Signer, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}

func wiped(key solana.PrivateKey) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
