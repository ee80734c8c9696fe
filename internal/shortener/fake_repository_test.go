package shortener_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/serroba/vaultlink/internal/shortener"
	"github.com/serroba/vaultlink/internal/store"
)

// fakeRepository wraps the memory store with failure knobs.
type fakeRepository struct {
	*store.MemoryStore

	mu sync.Mutex
	// insertErrs are returned by successive Insert calls before delegating.
	insertErrs   []error
	insertCalls  int
	lookupErr    error
	lookupMisses int
	lookupCalls  int
	expireCalls  []int64
	markExpErr   error
	insertedURLs []string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{MemoryStore: store.NewMemoryStore()}
}

func (f *fakeRepository) Insert(ctx context.Context, draft *shortener.Draft) (*shortener.ShortURL, error) {
	f.mu.Lock()
	f.insertCalls++
	f.insertedURLs = append(f.insertedURLs, draft.OriginalURL)

	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		f.mu.Unlock()

		return nil, err
	}
	f.mu.Unlock()

	return f.MemoryStore.Insert(ctx, draft)
}

func (f *fakeRepository) GetByOriginalURL(ctx context.Context, storedURL string) (*shortener.ShortURL, error) {
	f.mu.Lock()
	f.lookupCalls++
	err := f.lookupErr
	if err == nil && f.lookupMisses > 0 {
		f.lookupMisses--
		err = shortener.ErrNotFound
	}
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return f.MemoryStore.GetByOriginalURL(ctx, storedURL)
}

func (f *fakeRepository) MarkExpired(ctx context.Context, id int64) error {
	f.mu.Lock()
	f.expireCalls = append(f.expireCalls, id)
	err := f.markExpErr
	f.mu.Unlock()

	if err != nil {
		return err
	}

	return f.MemoryStore.MarkExpired(ctx, id)
}

// sequenceGenerator yields the given codes in order, then repeats the last one.
func sequenceGenerator(codes ...string) shortener.CodeGenerator {
	var (
		mu sync.Mutex
		i  int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		code := codes[min(i, len(codes)-1)]
		i++

		return code
	}
}

type fakeCodec struct {
	encryptErr error
	decryptErr error
	seq        int
}

func (c *fakeCodec) Encrypt(plaintext string) (string, error) {
	if c.encryptErr != nil {
		return "", c.encryptErr
	}

	c.seq++

	return fmt.Sprintf("enc%d:%s", c.seq, plaintext), nil
}

func (c *fakeCodec) Decrypt(ciphertext string) (string, error) {
	if c.decryptErr != nil {
		return "", c.decryptErr
	}

	_, plaintext, found := strings.Cut(ciphertext, ":")
	if !found {
		return "", errors.New("not ciphertext")
	}

	return plaintext, nil
}
