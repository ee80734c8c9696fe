package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/vaultlink/internal/shortener"
	"go.uber.org/zap"
)

// cacheRecord writes the record hash unless an invalidation tombstone is set and the
// record being written is not expired.
// KEYS[1] record hash, KEYS[2] tombstone. ARGV[1] ttl ms, ARGV[2] expired flag, ARGV[3:] fields.
var cacheRecord = redis.NewScript(`
if ARGV[2] == "0" and redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], unpack(ARGV, 3))
redis.call("PEXPIRE", KEYS[1], ARGV[1])
return 1
`)

// RedisCacheRepository wraps a Repository with Redis caching for reads.
type RedisCacheRepository struct {
	store     shortener.Repository
	client    *redis.Client
	prefix    string // "short_url:" + code -> record hash
	urlPrefix string // "short_url_url:" + stored url -> code
	idPrefix  string // "short_url_id:" + id -> code, for invalidation by id
	tombstone string // "short_url_expiring:" + code, blocks stale re-caching
	ttl       time.Duration
	logger    *zap.Logger
}

// DefaultCacheTTL applies when a non-positive ttl is given.
const DefaultCacheTTL = time.Hour

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger,
) *RedisCacheRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &RedisCacheRepository{
		store:     store,
		client:    client,
		prefix:    "short_url:",
		urlPrefix: "short_url_url:",
		idPrefix:  "short_url_id:",
		tombstone: "short_url_expiring:",
		ttl:       ttl,
		logger:    logger,
	}
}

// GetByCode retrieves a short URL by its code, checking cache first.
func (r *RedisCacheRepository) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	if shortURL, err := r.getFromCache(ctx, code); err == nil {
		return shortURL, nil
	}

	shortURL, err := r.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, shortURL)

	return shortURL, nil
}

// GetByOriginalURL retrieves a short URL by its stored URL, checking the URL index first.
func (r *RedisCacheRepository) GetByOriginalURL(ctx context.Context, storedURL string) (*shortener.ShortURL, error) {
	code, err := r.client.Get(ctx, r.urlPrefix+storedURL).Result()
	if err == nil {
		if shortURL, err := r.getFromCache(ctx, shortener.Code(code)); err == nil {
			return shortURL, nil
		}
	}

	shortURL, err := r.store.GetByOriginalURL(ctx, storedURL)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, shortURL)

	return shortURL, nil
}

// Insert stores a short URL in the underlying store and updates the cache.
func (r *RedisCacheRepository) Insert(ctx context.Context, draft *shortener.Draft) (*shortener.ShortURL, error) {
	shortURL, err := r.store.Insert(ctx, draft)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, shortURL)

	return shortURL, nil
}

// MarkExpired updates the underlying store and drops the cached record.
func (r *RedisCacheRepository) MarkExpired(ctx context.Context, id int64) error {
	if err := r.store.MarkExpired(ctx, id); err != nil {
		return err
	}

	r.invalidateID(ctx, id)

	return nil
}

// MarkExpiredIfPaid updates the underlying store and drops the cached record.
func (r *RedisCacheRepository) MarkExpiredIfPaid(ctx context.Context, id int64) (*shortener.ShortURL, error) {
	shortURL, err := r.store.MarkExpiredIfPaid(ctx, id)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, shortURL.Code)

	return shortURL, nil
}

// List always reads from the underlying store.
func (r *RedisCacheRepository) List(ctx context.Context) ([]*shortener.ShortURL, error) {
	return r.store.List(ctx)
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	result, err := r.client.HGetAll(ctx, r.prefix+string(code)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, shortener.ErrNotFound
	}

	return decodeCached(result)
}

func decodeCached(fields map[string]string) (*shortener.ShortURL, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, err
	}

	nanos, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, err
	}

	shortURL := &shortener.ShortURL{
		ID:          id,
		OriginalURL: fields["original_url"],
		Code:        shortener.Code(fields["code"]),
		CreatedAt:   time.Unix(0, nanos).UTC(),
		Encrypted:   fields["encrypted"] == "1",
		Expired:     fields["expired"] == "1",
	}

	if fields["paid"] == "1" {
		hash := fields["transaction_hash"]
		shortURL.TransactionHash = &hash
	}

	return shortURL, nil
}

func (r *RedisCacheRepository) cacheURL(ctx context.Context, shortURL *shortener.ShortURL) {
	code := string(shortURL.Code)

	args := []interface{}{
		r.ttl.Milliseconds(),
		boolFlag(shortURL.Expired),
		"id", shortURL.ID,
		"code", code,
		"original_url", shortURL.OriginalURL,
		"created_at", shortURL.CreatedAt.UnixNano(),
		"encrypted", boolFlag(shortURL.Encrypted),
		"expired", boolFlag(shortURL.Expired),
		"paid", boolFlag(shortURL.Paid()),
	}
	if shortURL.TransactionHash != nil {
		args = append(args, "transaction_hash", *shortURL.TransactionHash)
	}

	written, err := cacheRecord.Run(ctx, r.client, []string{r.prefix + code, r.tombstone + code}, args...).Int()
	if err != nil {
		r.logger.Warn("failed to cache short url", zap.String("code", code), zap.Error(err))

		return
	}

	if written == 0 {
		r.logger.Debug("skipped caching record being expired", zap.String("code", code))

		return
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.idPrefix+strconv.FormatInt(shortURL.ID, 10), code, r.ttl)

	// Ciphertext never matches a later lookup.
	if !shortURL.Encrypted {
		pipe.Set(ctx, r.urlPrefix+shortURL.OriginalURL, code, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("failed to index cached short url", zap.String("code", code), zap.Error(err))
	}
}

func (r *RedisCacheRepository) invalidateID(ctx context.Context, id int64) {
	code, err := r.client.Get(ctx, r.idPrefix+strconv.FormatInt(id, 10)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("failed to read cache index", zap.Int64("id", id), zap.Error(err))
		}

		return
	}

	r.invalidate(ctx, shortener.Code(code))
}

// invalidate drops the cached record and leaves a tombstone for one ttl, so a read that
// fetched the row before the expiry cannot cache it again.
func (r *RedisCacheRepository) invalidate(ctx context.Context, code shortener.Code) {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.tombstone+string(code), "1", r.ttl)
	pipe.Del(ctx, r.prefix+string(code))

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("failed to invalidate cached short url", zap.String("code", string(code)), zap.Error(err))
	}
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}

	return "0"
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)
