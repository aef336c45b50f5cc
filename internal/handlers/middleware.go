package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bloggery/apiserver/internal/logutil"
	"github.com/bloggery/apiserver/internal/services"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequireSession resolves the request's session token to a live user
// and injects it into the context. Anonymous requests are rejected
// before the protected handler runs, so a failed guard can never leave
// partial side effects.
func RequireSession(userService *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			user, err := userService.CurrentUser(r.Context(), token)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), contextUserKey, user)
			ctx = context.WithValue(ctx, contextTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches the logger to the request context and emits
// one line per request.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestLogger := logger.With().
				Str("request_id", middleware.GetReqID(r.Context())).
				Logger()
			ctx := logutil.WithLogger(r.Context(), requestLogger)

			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			requestLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
