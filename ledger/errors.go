package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the Service that is caused by the
// caller's input unwraps to one of the first six; infrastructure failures
// are returned wrapped and unwrap to none of them.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")

	// ErrIntegrity means the stored ledger broke one of its invariants.
	// It is never shown to the caller verbatim.
	ErrIntegrity = errors.New("ledger integrity fault")
)

// UserError is a rejection of the caller's request. Message is meant to be
// shown to the user as is.
type UserError struct {
	Kind    error
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Kind
}

func userError(kind error, format string, args ...interface{}) error {
	return &UserError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsUserError reports whether err is a rejection that can be shown to the user.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// IntegrityError is returned when an account holds a number of portfolio
// rows for a symbol other than zero or one.
type IntegrityError struct {
	AccountID uint
	Symbol    string
	Rows      int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("account %d has %d portfolio entries for %s", e.AccountID, e.Rows, e.Symbol)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}
