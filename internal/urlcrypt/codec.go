// Package urlcrypt encrypts stored URLs with XChaCha20-Poly1305.
//
// The text form is standard base64 of nonce || ciphertext || tag, so Decrypt needs
// nothing but the key and the string.
package urlcrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of the symmetric key in bytes.
const KeySize = chacha20poly1305.KeySize

var ErrDecrypt = errors.New("decrypt failed")

// Codec encrypts and decrypts URL strings under a fixed key.
type Codec struct {
	aead cipher.AEAD
}

// New creates a codec for the given key.
func New(key [KeySize]byte) (*Codec, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}

	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Malformed input and failed authentication
// both return ErrDecrypt.
func (c *Codec) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	if len(sealed) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", fmt.Errorf("%w: payload too short", ErrDecrypt)
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	return string(plaintext), nil
}
