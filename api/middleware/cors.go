package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/gemline-backend/pkg/config"
)

var defaultCORSOrigins = []string{"http://localhost:3000"}

// CORS applies the configured allowed-origin policy to the admin API.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
