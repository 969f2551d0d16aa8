// Package requestid assigns a correlation id to every request, honoring an
// inbound X-Request-ID when the caller supplies one.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"sangha/pkg/requestcontext"
)

// Header is the correlation id header read from requests and echoed back.
const Header = "X-Request-ID"

// Middleware stores the request id in the context and response headers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(Header)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		w.Header().Set(Header, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
