package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/gemline-backend/api/responses"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

const (
	requestIDHeader    = responses.RequestIDHeader
	maxRequestIDLength = 128
)

// RequestID echoes a well-formed caller X-Request-Id or mints a uuid, then
// tags the request logger with it.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !validRequestID(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), reqID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// validRequestID accepts 1..maxRequestIDLength bytes of [A-Za-z0-9._:-].
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == ':':
		default:
			return false
		}
	}
	return true
}
