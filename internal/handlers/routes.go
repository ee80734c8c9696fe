package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers all URL shortener routes.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "hello",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Greeting",
		Tags:        []string{"Meta"},
	}, urlHandler.Hello)

	huma.Register(api, huma.Operation{
		OperationID: "create-short-url",
		Method:      http.MethodPost,
		Path:        "/shorten",
		Summary:     "Create short URL",
		Description: "Returns the existing record for an already stored plaintext URL, otherwise issues a new short code. Encrypted URLs are never deduplicated.",
		Tags:        []string{"URLs"},
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, urlHandler.CreateShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "list-short-urls",
		Method:      http.MethodGet,
		Path:        "/urls",
		Summary:     "List short URLs",
		Tags:        []string{"URLs"},
	}, urlHandler.ListShortURLs)

	huma.Register(api, huma.Operation{
		OperationID: "expire-short-url",
		Method:      http.MethodPost,
		Path:        "/urls/{id}/expire",
		Summary:     "Expire a paid short URL",
		Tags:        []string{"URLs"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, urlHandler.ExpireShortURL)

	huma.Register(api, huma.Operation{
		OperationID:   "redirect",
		Method:        http.MethodGet,
		Path:          "/{code}",
		Summary:       "Redirect to original URL",
		Description:   "Redirects to the stored URL, or to the service root once a paid link has expired.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusFound,
	}, urlHandler.RedirectToURL)
}
