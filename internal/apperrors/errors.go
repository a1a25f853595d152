package apperrors

import (
	"errors"
)

var (
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNotFound      = errors.New("account not found")

	ErrBalanceNotFound = errors.New("balance not found")

	ErrDepositNotPositive = errors.New("deposit amounts must be positive")

	// A conditional accrual write found the balance stamped with a different
	// date than the one it was read with (concurrent run)
	ErrBalanceStale = errors.New("balance modified concurrently")

	// At most one ledger entry per account per accrual day
	ErrLedgerEntryExists = errors.New("ledger entry already exists for this day")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
)
