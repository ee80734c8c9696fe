package handlers

import (
	"time"

	"github.com/serroba/vaultlink/internal/shortener"
)

const textPlain = "text/plain; charset=utf-8"

// CreateShortURLRequest is the request body for creating a short URL.
type CreateShortURLRequest struct {
	Body struct {
		OriginalURL     string  `doc:"The URL to shorten"                                 example:"https://example.com/very/long/path" json:"original_url"`
		Encrypt         bool    `doc:"Store the URL encrypted"                            json:"encrypt,omitempty"`
		TransactionHash *string `doc:"Payment reference; paid links expire after 24 hours" example:"0x9f2c"                            json:"transaction_hash,omitempty" nullable:"true"`
	}
}

// ShortURLBody is the JSON representation of a stored short URL.
type ShortURLBody struct {
	ID              int64     `doc:"Record id"                                 json:"id"`
	OriginalURL     string    `doc:"The URL as stored, ciphertext if encrypted" json:"original_url"`
	ShortCode       string    `doc:"The short code"                            example:"aZ3kP9"  json:"short_code"`
	CreatedAt       time.Time `doc:"Creation time"                             json:"created_at"`
	Encrypted       bool      `doc:"Whether original_url is ciphertext"         json:"encrypted"`
	Expired         bool      `doc:"Whether access has expired"                json:"expired"`
	TransactionHash *string   `doc:"Payment reference"                         json:"transaction_hash" nullable:"true"`
}

func newShortURLBody(s *shortener.ShortURL) ShortURLBody {
	return ShortURLBody{
		ID:              s.ID,
		OriginalURL:     s.OriginalURL,
		ShortCode:       string(s.Code),
		CreatedAt:       s.CreatedAt,
		Encrypted:       s.Encrypted,
		Expired:         s.Expired,
		TransactionHash: s.TransactionHash,
	}
}

// ShortURLResponse wraps a single record.
type ShortURLResponse struct {
	Body ShortURLBody
}

// ListShortURLsResponse is the response for listing every record.
type ListShortURLsResponse struct {
	Body []ShortURLBody
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"aZ3kP9" path:"code"`
}

// RedirectResponse is either a 302 with a Location header or a plain-text failure.
type RedirectResponse struct {
	Status      int
	Location    string `header:"Location"`
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// ExpireShortURLRequest identifies the record to expire.
type ExpireShortURLRequest struct {
	ID int64 `doc:"Record id" path:"id"`
}

// TextResponse is a plain-text body.
type TextResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
