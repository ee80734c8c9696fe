package shortener

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("short url not found")
	ErrConflict = errors.New("short url conflict")
	ErrNotPaid  = errors.New("short url has no transaction")

	// ErrDuplicateCode means another record already holds the short code.
	ErrDuplicateCode = fmt.Errorf("%w: short code taken", ErrConflict)
	// ErrDuplicateURL means the insert was skipped because the stored URL already exists.
	ErrDuplicateURL = fmt.Errorf("%w: original url exists", ErrConflict)

	ErrInvalidData          = errors.New("invalid encrypted data")
	ErrUnavailable          = errors.New("storage unavailable")
	ErrRetryBudgetExhausted = errors.New("could not allocate a unique short code")
	ErrEncryptionFailed     = errors.New("failed to encrypt url")
	ErrEmptyURL             = errors.New("original url is empty")
)
