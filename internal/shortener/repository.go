package shortener

import "context"

// Repository defines the storage operations for short URL records.
type Repository interface {
	GetByCode(ctx context.Context, code Code) (*ShortURL, error)

	// GetByOriginalURL matches the stored representation exactly.
	GetByOriginalURL(ctx context.Context, storedURL string) (*ShortURL, error)

	// Insert returns ErrDuplicateURL when the stored URL already exists (no row is
	// written) and ErrDuplicateCode when the short code is taken.
	Insert(ctx context.Context, draft *Draft) (*ShortURL, error)

	// MarkExpired sets the expired flag. It is idempotent.
	MarkExpired(ctx context.Context, id int64) error

	// MarkExpiredIfPaid sets the expired flag only for records with a transaction hash,
	// returning ErrNotPaid otherwise. The read and the write are atomic.
	MarkExpiredIfPaid(ctx context.Context, id int64) (*ShortURL, error)

	List(ctx context.Context) ([]*ShortURL, error)
}
