package domain

import "errors"

// Business-rule violations. Every one of them aborts the transaction that
// produced it; callers match with errors.Is.
var (
	ErrNotAdmin            = errors.New("caller is not admin")
	ErrNotFound            = errors.New("not found")
	ErrInvalidParams       = errors.New("invalid parameters")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAlreadyExists       = errors.New("already exists")
	ErrAlreadySubmitted    = errors.New("resolution already submitted")
	ErrAlreadyClaimed      = errors.New("winnings already claimed")
	ErrAlreadyResolved     = errors.New("already resolved")
	ErrSlippage            = errors.New("slippage limit exceeded")
	ErrNotResolved         = errors.New("not resolved")
	ErrWrongOutcome        = errors.New("no shares on the winning side")
	ErrNotOracle           = errors.New("caller is not an active oracle")
	ErrDisputeWindowClosed = errors.New("dispute window closed")
	ErrInsufficientStake   = errors.New("dispute stake below minimum")
	ErrZeroAmount          = errors.New("amount must be greater than zero")
)

// errorCodes keeps the numeric codes stable for API collaborators. Codes are
// shared between kinds that never surface from the same operation.
var errorCodes = []struct {
	err  error
	code int
}{
	{ErrNotAdmin, 100},
	{ErrNotFound, 101},
	{ErrInvalidParams, 102},
	{ErrInsufficientFunds, 103},
	{ErrInsufficientShares, 103},
	{ErrUnauthorized, 104},
	{ErrAlreadySubmitted, 104},
	{ErrSlippage, 105},
	{ErrNotResolved, 106},
	{ErrDisputeWindowClosed, 106},
	{ErrAlreadyClaimed, 107},
	{ErrInsufficientStake, 107},
	{ErrWrongOutcome, 108},
	{ErrNotOracle, 108},
	{ErrAlreadyExists, 109},
	{ErrAlreadyResolved, 110},
	{ErrZeroAmount, 111},
}

// ErrorCode returns the numeric code of a business error, or 0 when err is
// nil or not a business error.
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return 0
}

// IsBusiness reports whether err is a rule violation. Rule violations are
// terminal: retrying the same transaction yields the same error.
func IsBusiness(err error) bool {
	return ErrorCode(err) != 0
}
