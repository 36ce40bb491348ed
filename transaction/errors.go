package transaction

import (
	"errors"
)

var (
	// ErrInvalidNonce reports a transaction nonce that does not match the
	// sender's account nonce.
	ErrInvalidNonce = errors.New("invalid transaction nonce")
	// ErrInvalidVersion reports an unsupported transaction version.
	ErrInvalidVersion = errors.New("invalid transaction version")
	// ErrMaxFeeExceeded reports an actual fee above the declared maximum.
	ErrMaxFeeExceeded = errors.New("actual fee exceeds max fee")
	// ErrInsufficientBalance reports a fee-token balance below the fee due.
	ErrInsufficientBalance = errors.New("insufficient fee token balance")
	// ErrValidationFailed wraps an error from an account validation call.
	ErrValidationFailed = errors.New("transaction validation failed")
)
