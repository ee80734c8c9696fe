package shortener

import (
	"errors"
	"fmt"

	"github.com/jaevor/go-nanoid"
)

// Alphabet is the set of symbols short codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	// DefaultCodeLength gives 62^6 possible codes.
	DefaultCodeLength = 6
	// MinCodeLength is the shortest length go-nanoid's custom generator can produce.
	MinCodeLength = 5
	// MaxCodeLength matches the short_code column width.
	MaxCodeLength = 16
)

var ErrInvalidCodeLength = errors.New("invalid short code length")

// CodeGenerator generates random short codes.
type CodeGenerator func() string

// NewCodeGenerator returns a generator of codes with exactly length symbols from Alphabet.
// Lengths outside MinCodeLength..MaxCodeLength are rejected.
func NewCodeGenerator(length int) (CodeGenerator, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return nil, fmt.Errorf("%w: %d, want %d..%d", ErrInvalidCodeLength, length, MinCodeLength, MaxCodeLength)
	}

	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, err
	}

	return CodeGenerator(gen), nil
}
