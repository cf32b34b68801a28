package types

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ninja0404/pump-bundler/pkg/program/pump"
	"github.com/ninja0404/pump-bundler/pkg/program/pumpamm"
)

// Common bundler errors
var (
	// Parameter validation errors
	ErrNilRPC           = errors.New("rpc client is nil")
	ErrNilSigner        = errors.New("signer is nil")
	ErrNilFeePayer      = errors.New("fee payer is nil")
	ErrZeroAmount       = errors.New("amount must be greater than 0")
	ErrInvalidSlippage  = errors.New("slippage bps must be <= 10000")
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrNoInstructions   = errors.New("requires at least one instruction")
	ErrNoWallets        = errors.New("no wallets supplied")

	// Account errors
	ErrAccountNotFound      = errors.New("account not found")
	ErrPoolNotFound         = errors.New("pool account not found")
	ErrBondingCurveNotFound = errors.New("bonding curve not found")

	// Pricing errors
	ErrZeroReserves          = errors.New("reserves must be greater than 0")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// Kind classifies a failure so callers can decide whether to retry,
// report or abort without string matching.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindTransient
	KindTimeout
	KindRejected
	KindRelay
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindTimeout:
		return "timeout"
	case KindRejected:
		return "rejected"
	case KindRelay:
		return "relay"
	default:
		return "internal"
	}
}

// Error is the tagged error every package boundary converts into.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed input, an oversized transaction or insufficient funding.
func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

// Validationf is Validation with formatting.
func Validationf(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Transient reports a failure worth retrying: a network error or state not yet visible.
func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// Timeout reports an exhausted bounded retry.
func Timeout(op string, attempts int) error {
	return &Error{Kind: KindTimeout, Op: op, Message: fmt.Sprintf("gave up after %d attempts", attempts)}
}

// Rejected reports a transaction that settled on-chain with an error.
func Rejected(op, reason string) error {
	return &Error{Kind: KindRejected, Op: op, Message: reason}
}

// Relay reports a block-engine failure for one endpoint.
func Relay(endpoint string, err error) error {
	return &Error{Kind: KindRelay, Op: endpoint, Err: err}
}

// Internal wraps an invariant failure, such as an address that cannot be derived.
func Internal(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf returns the kind of the first tagged error in err's chain.
// Untagged errors report KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var re RPCError
	if errors.As(err, &re) {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// RPCError wraps RPC failures with operation context.
type RPCError struct {
	Op  string
	Err error
}

func (e RPCError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e RPCError) Unwrap() error {
	return e.Err
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// ProgramError represents on-chain program execution errors.
type ProgramError struct {
	Program string
	Code    int
	Message string
	Logs    []string
}

func (e *ProgramError) Error() string {
	if e.Program == "" {
		return fmt.Sprintf("program error [%d]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("program %s error [%d]: %s", e.Program, e.Code, e.Message)
}

// SimulationError contains simulation failure details.
type SimulationError struct {
	Err  any
	Logs []string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed: %v", e.Err)
}

// ParseSimulationError extracts the custom program code from a transaction
// error value as returned by simulateTransaction or getSignatureStatuses.
func ParseSimulationError(errVal any, logs []string) error {
	if errVal == nil {
		return nil
	}
	if code, ok := customCode(errVal); ok {
		account := accountFromLogs(logs)
		program, msg := describeCode(code, account)
		return &ProgramError{
			Program: program,
			Code:    code,
			Message: msg,
			Logs:    logs,
		}
	}
	return &SimulationError{Err: errVal, Logs: logs}
}

// DescribeTxError renders a status error for Rejected outcomes.
func DescribeTxError(errVal any) string {
	if errVal == nil {
		return ""
	}
	if err := ParseSimulationError(errVal, nil); err != nil {
		var pe *ProgramError
		if errors.As(err, &pe) {
			return pe.Error()
		}
	}
	return fmt.Sprintf("%v", errVal)
}

// customCode digs {"InstructionError":[idx,{"Custom":code}]} out of a decoded JSON error.
func customCode(errVal any) (int, bool) {
	errMap, ok := errVal.(map[string]any)
	if !ok {
		return 0, false
	}
	inst, ok := errMap["InstructionError"].([]any)
	if !ok || len(inst) < 2 {
		return 0, false
	}
	custom, ok := inst[1].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := custom["Custom"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case uint32:
		return int(v), true
	}
	return 0, false
}

// accountFromLogs pulls the account name out of "AnchorError caused by account: xxx." lines.
func accountFromLogs(logs []string) string {
	const marker = "caused by account: "
	for _, line := range logs {
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}
		rest := line[idx+len(marker):]
		if end := strings.Index(rest, "."); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	return ""
}

func describeCode(code int, account string) (program, msg string) {
	switch code {
	case 3012:
		if account != "" {
			return "", fmt.Sprintf("account '%s' not initialized (create the account first)", account)
		}
		return "", "account not initialized"
	case 2023:
		return "", "token program constraint violated (wrong token program for mint)"
	case 3008:
		return "", "program ID was not as expected (wrong program)"
	}

	// Bundles mostly fail inside pump itself, so its table wins on overlap.
	if e, ok := pump.ErrorFromCode(uint32(code)); ok {
		return "pump", withAccount(readable(e.Name, e.Msg), account, code == int(pump.ErrCodeNotEnoughTokensToSell))
	}
	if e, ok := pumpamm.ErrorFromCode(uint32(code)); ok {
		return "pump_amm", withAccount(readable(e.Name, e.Msg), account, false)
	}
	return "", fmt.Sprintf("error code %d", code)
}

func withAccount(msg, account string, want bool) string {
	if want && account != "" {
		return fmt.Sprintf("%s (account: %s)", msg, account)
	}
	return msg
}

// readable prefers the IDL message and otherwise splits a CamelCase name.
func readable(name, msg string) string {
	if msg != "" {
		return msg
	}
	if name == "" {
		return "unknown error"
	}
	var b strings.Builder
	for i, c := range name {
		if i > 0 && c >= 'A' && c <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProgramError
	if errors.As(err, &pe) {
		return false
	}
	switch KindOf(err) {
	case KindTransient, KindRelay:
		return true
	case KindInternal:
		// Untagged errors come from the network layer more often than not.
		var te *Error
		return !errors.As(err, &te)
	default:
		return false
	}
}
