package errs

import (
	"errors"
	"fmt"
	"strings"
)

// 错误分类。编码阶段的错误（ValueOutOfRange / InvalidFieldLength / InvalidBundleOrdering /
// DerivationExhausted / PayloadTooLarge）必须在任何网络调用之前返回；
// 其余为网络阶段错误，以结构化结果返回给调用方。
var (
	ErrValueOutOfRange       = errors.New("value out of range")
	ErrInvalidFieldLength    = errors.New("invalid field length")
	ErrPayloadTooLarge       = errors.New("payload too large")
	ErrInvalidBundleOrdering = errors.New("invalid bundle ordering")
	ErrDerivationExhausted   = errors.New("derivation exhausted")
	ErrSimulationFailed      = errors.New("simulation failed")
	ErrConfirmationTimeout   = errors.New("confirmation timeout")
	ErrConflictingState      = errors.New("conflicting state")
	ErrSendFailed            = errors.New("send failed")
	ErrTransactionFailed     = errors.New("transaction failed")
)

// FieldError 描述某个字段的越界或长度错误，Expected / Actual 为可读描述
type FieldError struct {
	Kind     error
	Field    string
	Expected string
	Actual   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: field=%s expected=%s actual=%s", e.Kind, e.Field, e.Expected, e.Actual)
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

func OutOfRange(field, expected string, actual any) error {
	return &FieldError{Kind: ErrValueOutOfRange, Field: field, Expected: expected, Actual: fmt.Sprint(actual)}
}

func InvalidLength(field string, expected, actual int) error {
	return &FieldError{
		Kind:     ErrInvalidFieldLength,
		Field:    field,
		Expected: fmt.Sprintf("%d bytes", expected),
		Actual:   fmt.Sprintf("%d bytes", actual),
	}
}

func TooLarge(field string, limit, actual int) error {
	return &FieldError{
		Kind:     ErrPayloadTooLarge,
		Field:    field,
		Expected: fmt.Sprintf("<= %d bytes", limit),
		Actual:   fmt.Sprintf("%d bytes", actual),
	}
}

// BundleOrderingError 指出违反顺序约束的指令位置
type BundleOrderingError struct {
	Index  int
	Reason string
}

func (e *BundleOrderingError) Error() string {
	return fmt.Sprintf("%v: index=%d %s", ErrInvalidBundleOrdering, e.Index, e.Reason)
}

func (e *BundleOrderingError) Unwrap() error {
	return ErrInvalidBundleOrdering
}

// DerivationError 保留导致推导失败的 seed 信息，便于调用方定位
type DerivationError struct {
	Seeds     [][]byte
	Namespace string
	Cause     error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("%v: namespace=%s seeds=%d cause=%v", ErrDerivationExhausted, e.Namespace, len(e.Seeds), e.Cause)
}

func (e *DerivationError) Unwrap() []error {
	return []error{ErrDerivationExhausted, e.Cause}
}

// LedgerError 携带链上/RPC 返回的原始诊断信息
type LedgerError struct {
	Kind       error
	Signature  string
	Diagnostic any
	Logs       []string
	Cause      error
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Signature != "" {
		fmt.Fprintf(&b, ": signature=%s", e.Signature)
	}
	if e.Diagnostic != nil {
		fmt.Fprintf(&b, ": diagnostic=%v", e.Diagnostic)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if len(e.Logs) > 0 {
		fmt.Fprintf(&b, " (logs=%d, last=%q)", len(e.Logs), e.Logs[len(e.Logs)-1])
	}
	return b.String()
}

func (e *LedgerError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// TimeoutError 表示交易已发送但在期限内未观察到确认，结果不确定。
// Expired 为 true 时区块高度已超过 blockhash 的有效期，该交易不可能再上链。
type TimeoutError struct {
	Signature string
	Waited    string
	Expired   bool
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%v: signature=%s waited=%s blockhash_expired=%v", ErrConfirmationTimeout, e.Signature, e.Waited, e.Expired)
}

func (e *TimeoutError) Unwrap() error {
	return ErrConfirmationTimeout
}
