package sar

import "errors"

// Failure taxonomy surfaced to callers. Every failure aborts the whole
// operation with no state change.
var (
	ErrNullInput           = errors.New("sar: null input")
	ErrInvalidToken        = errors.New("sar: invalid token")
	ErrInvalidType         = errors.New("sar: invalid type")
	ErrUnprivilegedCaller  = errors.New("sar: unprivileged caller")
	ErrInsufficientBalance = errors.New("sar: insufficient balance")
	ErrNoEffect            = errors.New("sar: no effect")
	ErrOverflow            = errors.New("sar: overflow")
	ErrHighSlippage        = errors.New("sar: high slippage")
	ErrInvalidAmount       = errors.New("sar: invalid amount")
	ErrLocked              = errors.New("sar: locked")
)

// Wiring errors raised when the engine is used before its collaborators are
// configured.
var (
	errNilState           = errors.New("sar engine: state not configured")
	errNilFunding         = errors.New("sar engine: funding not configured")
	errNilTokens          = errors.New("sar engine: token backend not configured")
	errNilFactory         = errors.New("sar engine: pair factory not configured")
	errNilWrappedNative   = errors.New("sar engine: wrapped native not configured")
	errPoolNotFound       = errors.New("sar engine: pool not found")
	errAlreadyInitialized = errors.New("sar engine: pool zero already initialized")
)
