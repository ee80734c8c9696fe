package shortener

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds the insert attempts of a single shorten request.
const DefaultMaxAttempts = 5

// Encrypter turns a plaintext URL into its stored ciphertext form.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// ServiceConfig tunes the shorten flow.
type ServiceConfig struct {
	MaxAttempts int
	// StrictEncryption fails the request instead of storing plaintext when encryption fails.
	StrictEncryption bool
}

// Service issues short codes for URLs.
type Service struct {
	store        Repository
	generateCode CodeGenerator
	encrypter    Encrypter
	config       ServiceConfig
	logger       *zap.Logger
}

// NewService creates a shorten service.
func NewService(
	store Repository,
	generator CodeGenerator,
	encrypter Encrypter,
	config ServiceConfig,
	logger *zap.Logger,
) *Service {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}

	return &Service{
		store:        store,
		generateCode: generator,
		encrypter:    encrypter,
		config:       config,
		logger:       logger,
	}
}

// ShortenRequest is the input of Shorten.
type ShortenRequest struct {
	OriginalURL     string
	Encrypt         bool
	TransactionHash *string
}

// Shorten returns the record for an unencrypted URL that is already stored, or inserts a
// new record under a fresh random code. Code and URL conflicts are retried up to
// MaxAttempts times; any other storage error aborts.
func (s *Service) Shorten(ctx context.Context, req ShortenRequest) (*ShortURL, error) {
	originalURL := strings.TrimSpace(req.OriginalURL)
	if originalURL == "" {
		return nil, ErrEmptyURL
	}

	// Ciphertext is never equal to a previously stored value, so lookups only help
	// plaintext requests.
	if !req.Encrypt {
		existing, err := s.store.GetByOriginalURL(ctx, originalURL)
		if err == nil {
			return existing, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	storedURL, encrypted, err := s.storedForm(originalURL, req.Encrypt)
	if err != nil {
		return nil, err
	}

	draft := &Draft{
		OriginalURL:     storedURL,
		Encrypted:       encrypted,
		TransactionHash: normalizeTransactionHash(req.TransactionHash),
	}

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		draft.Code = Code(s.generateCode())

		saved, err := s.store.Insert(ctx, draft)
		if err == nil {
			return saved, nil
		}

		if !errors.Is(err, ErrConflict) {
			return nil, err
		}

		// A concurrent request stored the same plaintext first.
		if errors.Is(err, ErrDuplicateURL) && !encrypted {
			existing, lookupErr := s.store.GetByOriginalURL(ctx, storedURL)
			if lookupErr == nil {
				return existing, nil
			}

			if !errors.Is(lookupErr, ErrNotFound) {
				return nil, lookupErr
			}
		}

		s.logger.Debug("short code collision",
			zap.String("code", string(draft.Code)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return nil, ErrRetryBudgetExhausted
}

// storedForm returns the representation to persist and whether it is ciphertext.
func (s *Service) storedForm(originalURL string, encrypt bool) (string, bool, error) {
	if !encrypt {
		return originalURL, false, nil
	}

	ciphertext, err := s.encrypter.Encrypt(originalURL)
	if err == nil {
		return ciphertext, true, nil
	}

	if s.config.StrictEncryption {
		return "", false, fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}

	s.logger.Warn("encryption failed, storing plaintext url", zap.Error(err))

	return originalURL, false, nil
}

func normalizeTransactionHash(hash *string) *string {
	if hash == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*hash)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}
