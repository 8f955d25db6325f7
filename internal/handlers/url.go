package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/urls-node/internal/metrics"
	"github.com/serroba/urls-node/internal/shortener"
	"go.uber.org/zap"
)

// Shortener is the request core behind the HTTP handlers.
type Shortener interface {
	Create(ctx context.Context, req shortener.CreateRequest) (*shortener.CreateResult, error)
	Resolve(ctx context.Context, id shortener.ShortID) (string, error)
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service Shortener
	scheme  string
	logger  *zap.Logger
}

// NewURLHandler creates a new URL handler. scheme is used for returned short URLs.
func NewURLHandler(service Shortener, scheme string, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		service: service,
		scheme:  scheme,
		logger:  logger,
	}
}

// emptyError is a status error whose JSON body is an empty object.
type emptyError struct {
	status int
}

func (e *emptyError) Error() string {
	return http.StatusText(e.status)
}

func (e *emptyError) GetStatus() int {
	return e.status
}

func errNotFound() error {
	return &emptyError{status: http.StatusNotFound}
}

func errInternal() error {
	return huma.Error500InternalServerError("internal error")
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*CreateShortURLResponse, error) {
	url, err := shortener.ParseCreateBody(req.RawBody)
	if err != nil {
		metrics.RecordRequest("create", "bad_request")

		return nil, huma.Error400BadRequest(err.Error())
	}

	meta := RequestMetaFromContext(ctx)

	res, err := h.service.Create(ctx, shortener.CreateRequest{
		URL:         url,
		RequesterIP: meta.ClientIP,
		Origin: shortener.Origin{
			Scheme: h.scheme,
			Host:   meta.Host,
			Path:   meta.Path,
		},
	})
	if err != nil {
		metrics.RecordRequest("create", "error")
		h.logger.Error("failed to create short url",
			zap.String("clientIp", meta.ClientIP),
			zap.Error(err),
		)

		return nil, errInternal()
	}

	metrics.RecordRequest("create", "success")

	resp := &CreateShortURLResponse{}
	resp.Body.ShortURL = res.ShortURL

	return resp, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	url, err := h.service.Resolve(ctx, shortener.ShortID(req.ID))
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			metrics.RecordRequest("resolve", "not_found")

			return nil, errNotFound()
		}

		metrics.RecordRequest("resolve", "error")
		h.logger.Error("failed to resolve short url",
			zap.String("id", req.ID),
			zap.Error(err),
		)

		return nil, errInternal()
	}

	metrics.RecordRequest("resolve", "redirect")

	return &RedirectResponse{
		Status:   http.StatusFound,
		Location: url,
	}, nil
}
