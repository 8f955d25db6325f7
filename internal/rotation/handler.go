package rotation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Invalidator drops cached connections.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler invalidates the connection cache for events naming its secret.
type Handler struct {
	secretID string
	cache    Invalidator
	logger   *zap.Logger
}

// NewHandler creates a rotation handler for secretID.
func NewHandler(secretID string, cache Invalidator, logger *zap.Logger) *Handler {
	return &Handler{
		secretID: secretID,
		cache:    cache,
		logger:   logger,
	}
}

// Handle processes one rotation event. Events for other secrets are ignored.
func (h *Handler) Handle(ctx context.Context, event *CredentialsRotated) error {
	if event.SecretID != h.secretID {
		h.logger.Debug("ignoring rotation of unrelated secret", zap.String("secretId", event.SecretID))

		return nil
	}

	if err := h.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate connection cache: %w", err)
	}

	h.logger.Info("credentials rotated, cached connection dropped",
		zap.String("secretId", event.SecretID),
		zap.Time("rotatedAt", event.RotatedAt),
	)

	return nil
}
