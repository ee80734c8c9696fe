package handlers_test

import (
	"context"
	"errors"

	"github.com/serroba/vaultlink/internal/shortener"
	"github.com/serroba/vaultlink/internal/store"
)

var errMock = errors.New("mock error")

const testURL = "https://example.com"

// mockStore is a test double for shortener.Repository that can be configured to return errors.
type mockStore struct {
	*store.MemoryStore

	getErr    error
	lookupErr error
	insertErr error
	listErr   error
	expireErr error
}

func newMockStore(opts ...store.MemoryOption) *mockStore {
	return &mockStore{MemoryStore: store.NewMemoryStore(opts...)}
}

func (m *mockStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}

	return m.MemoryStore.GetByCode(ctx, code)
}

func (m *mockStore) GetByOriginalURL(ctx context.Context, storedURL string) (*shortener.ShortURL, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}

	return m.MemoryStore.GetByOriginalURL(ctx, storedURL)
}

func (m *mockStore) Insert(ctx context.Context, draft *shortener.Draft) (*shortener.ShortURL, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}

	return m.MemoryStore.Insert(ctx, draft)
}

func (m *mockStore) List(ctx context.Context) ([]*shortener.ShortURL, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}

	return m.MemoryStore.List(ctx)
}

func (m *mockStore) MarkExpiredIfPaid(ctx context.Context, id int64) (*shortener.ShortURL, error) {
	if m.expireErr != nil {
		return nil, m.expireErr
	}

	return m.MemoryStore.MarkExpiredIfPaid(ctx, id)
}
