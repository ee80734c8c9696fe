// Package config holds the process-wide secrets loaded once at startup.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/serroba/vaultlink/internal/urlcrypt"
)

var (
	ErrMissingSecret    = errors.New("missing secret")
	ErrInvalidCryptoKey = errors.New("crypto key must be 64 hex characters (32 bytes)")
)

// Secrets are read-only for the lifetime of the process.
type Secrets struct {
	DatabaseURL string
	CryptoKey   [urlcrypt.KeySize]byte
	// Host is the public host name used for expiry redirects.
	Host string
}

// Load validates raw secret values.
func Load(databaseURL, cryptoKeyHex, host string) (*Secrets, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	cryptoKeyHex = strings.TrimSpace(cryptoKeyHex)
	host = strings.TrimSpace(host)

	required := []struct{ name, value string }{
		{"DATABASE_URL", databaseURL},
		{"CRYPTO_KEY", cryptoKeyHex},
		{"HOST", host},
	}

	for _, secret := range required {
		if secret.value == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingSecret, secret.name)
		}
	}

	keyBytes, err := hex.DecodeString(cryptoKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCryptoKey, err)
	}

	if len(keyBytes) != urlcrypt.KeySize {
		return nil, ErrInvalidCryptoKey
	}

	secrets := &Secrets{
		DatabaseURL: databaseURL,
		Host:        host,
	}
	copy(secrets.CryptoKey[:], keyBytes)

	return secrets, nil
}
