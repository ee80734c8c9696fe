package shortener

import "time"

// Code represents a short URL code.
type Code string

// ShortURL is a persisted short URL record.
type ShortURL struct {
	ID int64
	// OriginalURL holds the stored representation: the plaintext destination, or the
	// encoded ciphertext when Encrypted is set.
	OriginalURL     string
	Code            Code
	CreatedAt       time.Time
	Encrypted       bool
	Expired         bool
	TransactionHash *string
}

// Paid reports whether the record was created as part of a paid flow.
func (s *ShortURL) Paid() bool {
	return s.TransactionHash != nil
}

// Draft is a record that has not been inserted yet.
type Draft struct {
	OriginalURL     string
	Code            Code
	Encrypted       bool
	TransactionHash *string
}
