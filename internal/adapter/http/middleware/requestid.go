package middleware

import (
	"net/http"

	"github.com/google/uuid"

	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
)

const requestIDHeader = "X-Request-Id"

// RequestID tags the request context with a correlation id, reusing the
// caller's when present.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		ctx := wrap.WithRequestID(r.Context(), id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
