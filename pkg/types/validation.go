package types

import (
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
)

// MaxBps is 100% expressed in basis points.
const MaxBps = 10_000

// ValidateBuyParams validates the two numbers every bonding-curve buy carries.
func ValidateBuyParams(amount, maxCost uint64) error {
	if amount == 0 {
		return NewValidationError("amount", "must be greater than 0")
	}
	if maxCost == 0 {
		return NewValidationError("maxCost", "must be greater than 0")
	}
	return nil
}

// ValidateSellParams validates a sell. A zero min output is allowed for
// AMM dust sells, so only the amount is checked.
func ValidateSellParams(amount uint64) error {
	if amount == 0 {
		return NewValidationError("amount", "must be greater than 0")
	}
	return nil
}

// ValidateBps rejects a basis-point value above 100%.
func ValidateBps(field string, bps uint64) error {
	if bps > MaxBps {
		return NewValidationError(field, fmt.Sprintf("must be <= %d, got %d", MaxBps, bps))
	}
	return nil
}

// ValidateSlippage validates slippage basis points.
func ValidateSlippage(slippageBps uint64) error {
	return ValidateBps("slippageBps", slippageBps)
}

// ValidatePublicKey validates a public key is not zero.
func ValidatePublicKey(name string, key solana.PublicKey) error {
	if key.IsZero() {
		return NewValidationError(name, "cannot be zero")
	}
	return nil
}

// ValidatePublicKeys validates multiple public keys. Names are checked in
// sorted order so the reported field is stable.
func ValidatePublicKeys(keys map[string]solana.PublicKey) error {
	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ValidatePublicKey(name, keys[name]); err != nil {
			return err
		}
	}
	return nil
}

// ParsePublicKey parses a base58 key and rejects the zero key.
func ParsePublicKey(field, s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, NewValidationError(field, "is required")
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, NewValidationError(field, fmt.Sprintf("invalid public key: %v", err))
	}
	if err := ValidatePublicKey(field, pk); err != nil {
		return solana.PublicKey{}, err
	}
	return pk, nil
}
