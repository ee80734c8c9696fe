package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/vaultlink/internal/middleware"
	"github.com/serroba/vaultlink/internal/shortener"
	"go.uber.org/zap"
)

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service  *shortener.Service
	resolver *shortener.Resolver
	store    shortener.Repository
	logger   *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(
	service *shortener.Service,
	resolver *shortener.Resolver,
	store shortener.Repository,
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		service:  service,
		resolver: resolver,
		store:    store,
		logger:   logger,
	}
}

func (h *URLHandler) Hello(_ context.Context, _ *struct{}) (*TextResponse, error) {
	return &TextResponse{ContentType: textPlain, Body: []byte("Hello, world!")}, nil
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*ShortURLResponse, error) {
	shortURL, err := h.service.Shorten(ctx, shortener.ShortenRequest{
		OriginalURL:     req.Body.OriginalURL,
		Encrypt:         req.Body.Encrypt,
		TransactionHash: req.Body.TransactionHash,
	})
	if err != nil {
		return nil, h.shortenError(ctx, err)
	}

	return &ShortURLResponse{Body: newShortURLBody(shortURL)}, nil
}

func (h *URLHandler) shortenError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, shortener.ErrEmptyURL):
		return huma.Error400BadRequest("original_url must not be empty")
	case errors.Is(err, shortener.ErrRetryBudgetExhausted):
		h.log(ctx).Warn("short code space exhausted", zap.Error(err))

		return huma.Error400BadRequest(shortener.ErrRetryBudgetExhausted.Error())
	case errors.Is(err, shortener.ErrUnavailable):
		h.log(ctx).Error("storage unavailable", zap.Error(err))

		return huma.Error500InternalServerError("storage unavailable")
	case errors.Is(err, shortener.ErrEncryptionFailed):
		h.log(ctx).Error("encryption failed", zap.Error(err))

		return huma.Error500InternalServerError("failed to encrypt url")
	default:
		h.log(ctx).Error("failed to save url", zap.Error(err))

		return huma.Error400BadRequest("failed to save url")
	}
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	resolution, err := h.resolver.Resolve(ctx, shortener.Code(req.Code))
	if err != nil {
		switch {
		case errors.Is(err, shortener.ErrNotFound):
			return textFailure(http.StatusNotFound, "Short URL not found."), nil
		case errors.Is(err, shortener.ErrInvalidData):
			h.log(ctx).Error("stored ciphertext rejected",
				zap.String("code", req.Code),
				zap.Error(err),
			)

			return textFailure(http.StatusBadRequest, "Invalid encrypted data"), nil
		default:
			h.log(ctx).Error("failed to resolve short url",
				zap.String("code", req.Code),
				zap.Error(err),
			)

			return textFailure(http.StatusInternalServerError, "Internal server error"), nil
		}
	}

	return &RedirectResponse{
		Status:   http.StatusFound,
		Location: resolution.URL,
	}, nil
}

func textFailure(status int, message string) *RedirectResponse {
	return &RedirectResponse{
		Status:      status,
		ContentType: textPlain,
		Body:        []byte(message),
	}
}

func (h *URLHandler) ListShortURLs(ctx context.Context, _ *struct{}) (*ListShortURLsResponse, error) {
	urls, err := h.store.List(ctx)
	if err != nil {
		h.log(ctx).Error("failed to list urls", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to list urls")
	}

	resp := &ListShortURLsResponse{Body: make([]ShortURLBody, 0, len(urls))}
	for _, u := range urls {
		resp.Body = append(resp.Body, newShortURLBody(u))
	}

	return resp, nil
}

func (h *URLHandler) ExpireShortURL(ctx context.Context, req *ExpireShortURLRequest) (*ShortURLResponse, error) {
	shortURL, err := h.store.MarkExpiredIfPaid(ctx, req.ID)
	if err != nil {
		switch {
		case errors.Is(err, shortener.ErrNotFound):
			return nil, huma.Error404NotFound("short url not found")
		case errors.Is(err, shortener.ErrNotPaid):
			return nil, huma.Error422UnprocessableEntity("short url has no transaction hash")
		default:
			h.log(ctx).Error("failed to expire url", zap.Int64("id", req.ID), zap.Error(err))

			return nil, huma.Error500InternalServerError("failed to expire url")
		}
	}

	return &ShortURLResponse{Body: newShortURLBody(shortURL)}, nil
}

func (h *URLHandler) log(ctx context.Context) *zap.Logger {
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		return h.logger.With(zap.String("request_id", id))
	}

	return h.logger
}
