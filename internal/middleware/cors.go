package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORS allows the frontend origin to call the API. An empty origin allows
// any origin.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	opts := []handlers.CORSOption{
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", RequestIDHeader}),
		handlers.ExposedHeaders([]string{RequestIDHeader}),
		handlers.MaxAge(600),
	}
	if allowedOrigin != "" {
		opts = append(opts, handlers.AllowedOrigins([]string{allowedOrigin}))
	} else {
		opts = append(opts, handlers.AllowedOrigins([]string{"*"}))
	}
	return handlers.CORS(opts...)
}
