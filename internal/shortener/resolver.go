package shortener

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Decrypter recovers a plaintext URL from its stored ciphertext form.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// ExpireFunc requests that a record be flagged as expired. It must not block on storage.
type ExpireFunc func(ctx context.Context, event *ExpiredEvent) error

// Destination tells where a resolved short URL sends the client.
type Destination int

const (
	// DestinationTarget is the stored destination URL.
	DestinationTarget Destination = iota + 1
	// DestinationHome is the service root, used once access has expired.
	DestinationHome
)

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	Destination Destination
	URL         string
}

// Resolver maps short codes to redirect targets.
type Resolver struct {
	store     Repository
	decrypter Decrypter
	policy    ExpirationPolicy
	expire    ExpireFunc
	homeURL   string
	now       func() time.Time
	logger    *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the time source used by the expiration policy.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithPolicy overrides the default expiration policy.
func WithPolicy(policy ExpirationPolicy) ResolverOption {
	return func(r *Resolver) {
		r.policy = policy
	}
}

// NewResolver creates a resolver that sends expired links to https://{host}/.
func NewResolver(
	store Repository,
	decrypter Decrypter,
	expire ExpireFunc,
	host string,
	logger *zap.Logger,
	opts ...ResolverOption,
) *Resolver {
	r := &Resolver{
		store:     store,
		decrypter: decrypter,
		policy:    NewExpirationPolicy(),
		expire:    expire,
		homeURL:   fmt.Sprintf("https://%s/", host),
		now:       time.Now,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve looks up a code. It returns ErrNotFound for unknown codes and ErrInvalidData
// when stored ciphertext cannot be decrypted.
func (r *Resolver) Resolve(ctx context.Context, code Code) (*Resolution, error) {
	shortURL, err := r.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := r.now()

	switch r.policy.Evaluate(shortURL, now) {
	case AccessExpired:
		return r.home(), nil
	case AccessLapsed:
		r.requestExpiry(ctx, shortURL, now)

		return r.home(), nil
	case AccessGranted:
	}

	target := shortURL.OriginalURL

	if shortURL.Encrypted {
		target, err = r.decrypter.Decrypt(shortURL.OriginalURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
		}
	}

	return &Resolution{Destination: DestinationTarget, URL: target}, nil
}

func (r *Resolver) home() *Resolution {
	return &Resolution{Destination: DestinationHome, URL: r.homeURL}
}

func (r *Resolver) requestExpiry(ctx context.Context, shortURL *ShortURL, now time.Time) {
	event := &ExpiredEvent{
		ID:        shortURL.ID,
		Code:      string(shortURL.Code),
		ExpiredAt: now,
	}

	if err := r.expire(ctx, event); err != nil {
		r.logger.Error("failed to request expiry",
			zap.Int64("id", shortURL.ID),
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}
}
