package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/serroba/urls-node/internal/handlers"
)

// RequestMeta adds the client IP and the request origin (host and path) to the request context.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := handlers.RequestMeta{
			ClientIP: extractClientIP(r),
			Host:     extractHost(r),
			Path:     r.URL.Path,
		}

		next.ServeHTTP(w, r.WithContext(handlers.ContextWithRequestMeta(r.Context(), meta)))
	})
}

func extractClientIP(r *http.Request) string {
	// Check X-Forwarded-For first (may contain multiple IPs)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP (original client)
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

func extractHost(r *http.Request) string {
	if xfh := r.Header.Get("X-Forwarded-Host"); xfh != "" {
		if idx := strings.Index(xfh, ","); idx != -1 {
			return strings.TrimSpace(xfh[:idx])
		}

		return strings.TrimSpace(xfh)
	}

	return r.Host
}
