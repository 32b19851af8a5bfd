package settlement

import (
	"context"
	"errors"
	"fmt"

	"token-pay-api/internal/constant"
)

// Kind 入账失败类型
type Kind int

const (
	KindOrderNotFound Kind = iota + 1
	KindMissingCreditAmount
	KindBalanceReadFailed
	KindBalanceWriteFailed
	KindLedgerReadFailed
	KindLedgerWriteFailed
	KindSignatureMismatch
	KindTimeout
	KindOrderNumberCollision
	KindInProgress
)

var kindNames = map[Kind]string{
	KindOrderNotFound:        "OrderNotFound",
	KindMissingCreditAmount:  "MissingCreditAmount",
	KindBalanceReadFailed:    "BalanceReadFailed",
	KindBalanceWriteFailed:   "BalanceWriteFailed",
	KindLedgerReadFailed:     "LedgerReadFailed",
	KindLedgerWriteFailed:    "LedgerWriteFailed",
	KindSignatureMismatch:    "SignatureMismatch",
	KindTimeout:              "Timeout",
	KindOrderNumberCollision: "OrderNumberCollision",
	KindInProgress:           "InProgress",
}

var kindCodes = map[Kind]int{
	KindOrderNotFound:        constant.CodeOrderNotFound,
	KindMissingCreditAmount:  constant.CodeReconMissingCredit,
	KindBalanceReadFailed:    constant.CodeReconBalanceRead,
	KindBalanceWriteFailed:   constant.CodeReconBalanceWrite,
	KindLedgerReadFailed:     constant.CodeDatabaseError,
	KindLedgerWriteFailed:    constant.CodeReconLedgerWrite,
	KindSignatureMismatch:    constant.CodeSignatureError,
	KindTimeout:              constant.CodeTimeout,
	KindOrderNumberCollision: constant.CodeOrderNumberCollision,
	KindInProgress:           constant.CodeReconInProgress,
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Code 对应的业务错误码
func (k Kind) Code() int {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return constant.CodeSystemError
}

// Retryable 是否值得由外部再次触发入账
func (k Kind) Retryable() bool {
	switch k {
	case KindOrderNotFound, KindMissingCreditAmount, KindSignatureMismatch, KindInProgress:
		return false
	}
	return true
}

// Error 入账错误，errors.Is 按 Kind 比较
type Error struct {
	Kind    Kind
	OrderNo string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.OrderNo != "" && e.Err != nil:
		return fmt.Sprintf("%s: order %s: %v", e.Kind, e.OrderNo, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.OrderNo != "":
		return fmt.Sprintf("%s: order %s", e.Kind, e.OrderNo)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Code 业务错误码
func (e *Error) Code() int { return e.Kind.Code() }

var (
	ErrOrderNotFound        = &Error{Kind: KindOrderNotFound}
	ErrMissingCreditAmount  = &Error{Kind: KindMissingCreditAmount}
	ErrBalanceReadFailed    = &Error{Kind: KindBalanceReadFailed}
	ErrBalanceWriteFailed   = &Error{Kind: KindBalanceWriteFailed}
	ErrLedgerReadFailed     = &Error{Kind: KindLedgerReadFailed}
	ErrLedgerWriteFailed    = &Error{Kind: KindLedgerWriteFailed}
	ErrSignatureMismatch    = &Error{Kind: KindSignatureMismatch}
	ErrTimeout              = &Error{Kind: KindTimeout}
	ErrOrderNumberCollision = &Error{Kind: KindOrderNumberCollision}
	ErrInProgress           = &Error{Kind: KindInProgress}
)

// NewError 构造入账错误；超时统一归为 KindTimeout
func NewError(kind Kind, orderNo string, err error) *Error {
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, OrderNo: orderNo, Err: err}
}

// KindOf 提取错误类型，非入账错误返回 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
