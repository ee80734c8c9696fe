package shortener_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/serroba/vaultlink/internal/shortener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(repo shortener.Repository, generate shortener.CodeGenerator, codec *fakeCodec, strict bool) *shortener.Service {
	return shortener.NewService(repo, generate, codec, shortener.ServiceConfig{StrictEncryption: strict}, zap.NewNop())
}

func TestService_Shorten(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a record with a trimmed url", func(t *testing.T) {
		repo := newFakeRepository()
		svc := newService(repo, sequenceGenerator("abc123"), &fakeCodec{}, false)
		hash := "  0xabc "

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{
			OriginalURL:     "  https://example.com/page \n",
			TransactionHash: &hash,
		})

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/page", saved.OriginalURL)
		assert.Equal(t, shortener.Code("abc123"), saved.Code)
		assert.False(t, saved.Encrypted)
		assert.False(t, saved.Expired)
		require.NotNil(t, saved.TransactionHash)
		assert.Equal(t, "0xabc", *saved.TransactionHash)
	})

	t.Run("treats a blank transaction hash as absent", func(t *testing.T) {
		repo := newFakeRepository()
		svc := newService(repo, sequenceGenerator("abc123"), &fakeCodec{}, false)
		blank := "   "

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com", TransactionHash: &blank})

		require.NoError(t, err)
		assert.Nil(t, saved.TransactionHash)
		assert.False(t, saved.Paid())
	})

	t.Run("rejects a blank url", func(t *testing.T) {
		repo := newFakeRepository()
		svc := newService(repo, sequenceGenerator("abc123"), &fakeCodec{}, false)

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: " \t "})

		assert.Nil(t, saved)
		assert.ErrorIs(t, err, shortener.ErrEmptyURL)
		assert.Zero(t, repo.insertCalls)
	})

	t.Run("deduplicates unencrypted urls", func(t *testing.T) {
		repo := newFakeRepository()
		svc := newService(repo, sequenceGenerator("first1", "second"), &fakeCodec{}, false)

		first, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com"})
		require.NoError(t, err)

		second, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: " https://example.com "})
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, repo.insertCalls)

		all, _ := repo.List(ctx)
		assert.Len(t, all, 1)
	})

	t.Run("never deduplicates encrypted urls", func(t *testing.T) {
		repo := newFakeRepository()
		svc := newService(repo, sequenceGenerator("first1", "second"), &fakeCodec{}, false)

		first, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com", Encrypt: true})
		require.NoError(t, err)

		second, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com", Encrypt: true})
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.NotEqual(t, first.Code, second.Code)
		assert.NotEqual(t, first.OriginalURL, second.OriginalURL)
		assert.True(t, first.Encrypted)
		assert.True(t, second.Encrypted)
		assert.Zero(t, repo.lookupCalls)
	})

	t.Run("retries code collisions with a fresh code", func(t *testing.T) {
		repo := newFakeRepository()
		repo.insertErrs = []error{shortener.ErrDuplicateCode, shortener.ErrDuplicateCode}
		svc := newService(repo, sequenceGenerator("aaaaaa", "bbbbbb", "cccccc"), &fakeCodec{}, false)

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com"})

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("cccccc"), saved.Code)
		assert.Equal(t, 3, repo.insertCalls)
	})

	t.Run("stops after five conflicting attempts", func(t *testing.T) {
		repo := newFakeRepository()
		repo.insertErrs = []error{
			shortener.ErrDuplicateCode,
			shortener.ErrDuplicateCode,
			shortener.ErrDuplicateCode,
			shortener.ErrDuplicateCode,
			shortener.ErrDuplicateCode,
			shortener.ErrDuplicateCode,
		}
		svc := newService(repo, sequenceGenerator("aaaaaa"), &fakeCodec{}, false)

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com"})

		assert.Nil(t, saved)
		assert.ErrorIs(t, err, shortener.ErrRetryBudgetExhausted)
		assert.Equal(t, shortener.DefaultMaxAttempts, repo.insertCalls)
	})

	t.Run("encrypted url conflicts consume retries", func(t *testing.T) {
		repo := newFakeRepository()
		repo.insertErrs = []error{shortener.ErrDuplicateURL}
		svc := newService(repo, sequenceGenerator("aaaaaa", "bbbbbb"), &fakeCodec{}, false)

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com", Encrypt: true})

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("bbbbbb"), saved.Code)
		assert.Equal(t, 2, repo.insertCalls)
	})

	t.Run("returns the concurrent winner on plaintext url conflict", func(t *testing.T) {
		repo := newFakeRepository()
		svc := newService(repo, sequenceGenerator("mine01"), &fakeCodec{}, false)

		winner, err := repo.MemoryStore.Insert(ctx, &shortener.Draft{OriginalURL: "https://example.com", Code: "theirs"})
		require.NoError(t, err)

		// The first lookup misses, as if the winner committed right after it.
		repo.lookupMisses = 1
		repo.insertErrs = []error{shortener.ErrDuplicateURL}

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com"})

		require.NoError(t, err)
		assert.Equal(t, winner.ID, saved.ID)
		assert.Equal(t, shortener.Code("theirs"), saved.Code)
		assert.Equal(t, 2, repo.lookupCalls)
	})

	t.Run("aborts on non-conflict storage errors", func(t *testing.T) {
		repo := newFakeRepository()
		repo.insertErrs = []error{fmt.Errorf("%w: pool timeout", shortener.ErrUnavailable)}
		svc := newService(repo, sequenceGenerator("aaaaaa"), &fakeCodec{}, false)

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com"})

		assert.Nil(t, saved)
		assert.ErrorIs(t, err, shortener.ErrUnavailable)
		assert.Equal(t, 1, repo.insertCalls)
	})

	t.Run("aborts when the dedup lookup fails", func(t *testing.T) {
		repo := newFakeRepository()
		repo.lookupErr = shortener.ErrUnavailable
		svc := newService(repo, sequenceGenerator("aaaaaa"), &fakeCodec{}, false)

		_, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com"})

		assert.ErrorIs(t, err, shortener.ErrUnavailable)
		assert.Zero(t, repo.insertCalls)
	})

	t.Run("stores ciphertext when encrypting", func(t *testing.T) {
		repo := newFakeRepository()
		svc := newService(repo, sequenceGenerator("aaaaaa"), &fakeCodec{}, false)

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com", Encrypt: true})

		require.NoError(t, err)
		assert.True(t, saved.Encrypted)
		assert.Equal(t, "enc1:https://example.com", saved.OriginalURL)
	})

	t.Run("falls back to plaintext when encryption fails", func(t *testing.T) {
		repo := newFakeRepository()
		codec := &fakeCodec{encryptErr: errors.New("no entropy")}
		svc := newService(repo, sequenceGenerator("aaaaaa"), codec, false)

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com", Encrypt: true})

		require.NoError(t, err)
		assert.False(t, saved.Encrypted)
		assert.Equal(t, "https://example.com", saved.OriginalURL)
	})

	t.Run("strict mode fails when encryption fails", func(t *testing.T) {
		repo := newFakeRepository()
		codec := &fakeCodec{encryptErr: errors.New("no entropy")}
		svc := newService(repo, sequenceGenerator("aaaaaa"), codec, true)

		saved, err := svc.Shorten(ctx, shortener.ShortenRequest{OriginalURL: "https://example.com", Encrypt: true})

		assert.Nil(t, saved)
		assert.ErrorIs(t, err, shortener.ErrEncryptionFailed)
		assert.Zero(t, repo.insertCalls)
	})
}
