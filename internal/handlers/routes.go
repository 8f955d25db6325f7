package handlers

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the create and resolve operations under basePath.
func RegisterRoutes(api huma.API, basePath string, urlHandler *URLHandler) {
	basePath = "/" + strings.Trim(basePath, "/")

	// POST {base} - Create short URL
	huma.Register(api, huma.Operation{
		OperationID: "create-short-url",
		Method:      http.MethodPost,
		Path:        basePath,
		Summary:     "Create short URL",
		Description: "Stores the URL under a newly generated short identifier and returns the short URL.",
		Tags:        []string{"URLs"},
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, urlHandler.CreateShortURL)

	// GET {base}/{id} - Redirect to original URL
	huma.Register(api, huma.Operation{
		OperationID:   "resolve-short-url",
		Method:        http.MethodGet,
		Path:          strings.TrimSuffix(basePath, "/") + "/{id}",
		Summary:       "Redirect to original URL",
		Description:   "Redirects to the original URL associated with the short identifier.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusFound,
		Errors:        []int{http.StatusNotFound, http.StatusInternalServerError},
	}, urlHandler.RedirectToURL)
}

// APIConfig returns the huma configuration for the service. The schema link
// transformer is left out so response bodies carry only their documented fields.
func APIConfig() huma.Config {
	config := huma.DefaultConfig("URL Shortener", "1.0.0")
	config.CreateHooks = nil

	return config
}
