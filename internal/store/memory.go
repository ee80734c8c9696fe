package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/serroba/vaultlink/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository with the same
// uniqueness rules as the short_urls table.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*shortener.ShortURL
	byCode map[shortener.Code]int64 // code -> id
	byURL  map[string]int64         // stored url -> id
	now    func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock used to stamp CreatedAt on insert.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// NewMemoryStore creates a new in-memory URL store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		byID:   make(map[int64]*shortener.ShortURL),
		byCode: make(map[shortener.Code]int64),
		byURL:  make(map[string]int64),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MemoryStore) GetByCode(_ context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byCode[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return clone(m.byID[id]), nil
}

func (m *MemoryStore) GetByOriginalURL(_ context.Context, storedURL string) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byURL[storedURL]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return clone(m.byID[id]), nil
}

func (m *MemoryStore) Insert(_ context.Context, draft *shortener.Draft) (*shortener.ShortURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byURL[draft.OriginalURL]; ok {
		return nil, shortener.ErrDuplicateURL
	}

	if _, ok := m.byCode[draft.Code]; ok {
		return nil, shortener.ErrDuplicateCode
	}

	m.nextID++

	shortURL := &shortener.ShortURL{
		ID:              m.nextID,
		OriginalURL:     draft.OriginalURL,
		Code:            draft.Code,
		CreatedAt:       m.now(),
		Encrypted:       draft.Encrypted,
		TransactionHash: cloneString(draft.TransactionHash),
	}

	m.byID[shortURL.ID] = shortURL
	m.byCode[shortURL.Code] = shortURL.ID
	m.byURL[shortURL.OriginalURL] = shortURL.ID

	return clone(shortURL), nil
}

func (m *MemoryStore) MarkExpired(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	shortURL, ok := m.byID[id]
	if !ok {
		return shortener.ErrNotFound
	}

	shortURL.Expired = true

	return nil
}

func (m *MemoryStore) MarkExpiredIfPaid(_ context.Context, id int64) (*shortener.ShortURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shortURL, ok := m.byID[id]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	if !shortURL.Paid() {
		return nil, shortener.ErrNotPaid
	}

	shortURL.Expired = true

	return clone(shortURL), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	urls := make([]*shortener.ShortURL, 0, len(m.byID))
	for _, shortURL := range m.byID {
		urls = append(urls, clone(shortURL))
	}

	sort.Slice(urls, func(i, j int) bool { return urls[i].ID < urls[j].ID })

	return urls, nil
}

func clone(s *shortener.ShortURL) *shortener.ShortURL {
	c := *s
	c.TransactionHash = cloneString(s.TransactionHash)

	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}

	c := *s

	return &c
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
