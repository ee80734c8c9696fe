// Package expiry applies expiration events produced by the redirect path.
package expiry

import (
	"context"
	"errors"
	"fmt"

	"github.com/serroba/vaultlink/internal/messaging"
	"github.com/serroba/vaultlink/internal/shortener"
	"go.uber.org/zap"
)

// NewHandler marks the record named by the event as expired. Marking is
// idempotent, so redelivered events are harmless.
func NewHandler(repo shortener.Repository, logger *zap.Logger) messaging.Handler[shortener.ExpiredEvent] {
	return func(ctx context.Context, event *shortener.ExpiredEvent) error {
		err := repo.MarkExpired(ctx, event.ID)
		if errors.Is(err, shortener.ErrNotFound) {
			return fmt.Errorf("%w: short url %d: %w", messaging.ErrSkip, event.ID, err)
		}

		if err != nil {
			return fmt.Errorf("mark short url %d expired: %w", event.ID, err)
		}

		logger.Info("short url expired",
			zap.Int64("id", event.ID),
			zap.String("code", event.Code),
			zap.Time("expired_at", event.ExpiredAt),
		)

		return nil
	}
}
