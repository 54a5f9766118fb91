package middleware

import (
	"log/slog"
	"net/http"

	"github.com/rezkam/atelier/internal/infrastructure/http/response"
)

// MaxBodyBytes limits request bodies to maxBytes.
// A declared Content-Length over the limit is rejected up front with 413. Bodies without one
// are wrapped in http.MaxBytesReader, so reading past the limit fails with *http.MaxBytesError
// and the handler's decoder turns that into 413.
func MaxBodyBytes(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				slog.WarnContext(r.Context(), "Request body size limit exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"content_length", r.ContentLength,
					"limit", maxBytes)
				response.PayloadTooLarge(w)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
