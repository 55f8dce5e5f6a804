// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Storage errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidAddress = errors.New("invalid address")
	ErrNonceExpired   = errors.New("sign-in nonce expired")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownKind    = errors.New("unknown record type")

	// Validation errors, raised before anything is broadcast.
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAmountTooLarge      = errors.New("amount too large")
	ErrVaultNotDeployed    = errors.New("vault not deployed")
	ErrUnknownToken        = errors.New("unknown token")

	// Chain-level errors. The underlying message is wrapped, never replaced.
	ErrApprovalFailed  = errors.New("approval failed")
	ErrDepositFailed   = errors.New("deposit failed")
	ErrWithdrawFailed  = errors.New("withdraw failed")
	ErrSendFailed      = errors.New("send failed")
	ErrNetworkMismatch = errors.New("network mismatch")

	// ErrOperationInFlight rejects a second submission while one is pending.
	ErrOperationInFlight = errors.New("operation already in flight")
)

// IsValidation reports whether err is one of the synchronous validation kinds
// that are raised before any transaction is broadcast.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrAmountTooLarge) ||
		errors.Is(err, ErrVaultNotDeployed) ||
		errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrUnknownToken)
}
