package autofill

import (
	"io"

	"github.com/gagliardetto/solana-go"
)

// Options configures autofill helpers.
type Options struct {
	Preview          io.Writer
	JitoTipLamports  uint64           // Jito tip amount in lamports (0 = no tip)
	JitoTipAccount   solana.PublicKey // Jito tip account (if zero, one is picked from the configured list)
	CloseQuoteATA    bool             // Close the WSOL account after the swap
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64 // micro-lamports per compute unit
}

// Option functional option.
type Option func(*Options)

// WithPreview writes the filled accounts and args as JSON to w.
func WithPreview(w io.Writer) Option {
	return func(o *Options) { o.Preview = w }
}

// WithJitoTip appends a tip transfer at the end of the instruction list.
// tipLamports: amount to tip in lamports (e.g., 1_000_000 = 0.001 SOL)
//
// Example:
//
//	f.AmmBuy(user, pool, amountSol, slippageBps,
//	    autofill.WithJitoTip(1_000_000), // 0.001 SOL tip
//	)
func WithJitoTip(tipLamports uint64) Option {
	return func(o *Options) { o.JitoTipLamports = tipLamports }
}

// WithJitoTipAccount pins the tip account instead of picking a random one.
func WithJitoTipAccount(account solana.PublicKey) Option {
	return func(o *Options) { o.JitoTipAccount = account }
}

// WithCloseQuoteATA closes the WSOL account after the swap, unwrapping what
// is left to native SOL.
func WithCloseQuoteATA(v bool) Option {
	return func(o *Options) { o.CloseQuoteATA = v }
}

// WithComputeBudget prepends compute unit limit and price instructions.
func WithComputeBudget(limit uint32, microLamports uint64) Option {
	return func(o *Options) {
		o.ComputeUnitLimit = limit
		o.ComputeUnitPrice = microLamports
	}
}

func applyOptions(defaults Options, opts []Option) *Options {
	o := defaults
	for _, opt := range opts {
		opt(&o)
	}
	return &o
}
