package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/bloggery/apiserver/internal/logutil"
	"github.com/bloggery/apiserver/internal/services"
	"github.com/bloggery/apiserver/internal/store"
	"github.com/bloggery/apiserver/types"
	"github.com/go-playground/validator/v10"
)

type contextKey string

const (
	contextUserKey  contextKey = "user"
	contextTokenKey contextKey = "token"
)

// sessionCookie is the cookie the opaque session token travels in.
const sessionCookie = "session"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field names as they appear on the wire.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs validator tags and converts failures into the
// service-level field error shape.
func validateStruct(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return err
	}
	fields := make(map[string]string, len(invalid))
	for _, fieldErr := range invalid {
		if _, exists := fields[fieldErr.Field()]; exists {
			continue
		}
		switch fieldErr.Tag() {
		case "required":
			fields[fieldErr.Field()] = "required"
		case "email":
			fields[fieldErr.Field()] = "must be a valid email address"
		case "min":
			fields[fieldErr.Field()] = "too short"
		case "max":
			fields[fieldErr.Field()] = "too long"
		default:
			fields[fieldErr.Field()] = "invalid"
		}
	}
	return &services.ValidationError{Fields: fields}
}

// sessionToken extracts the session token from the cookie or, failing
// that, a bearer Authorization header. Empty string means anonymous.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(contextTokenKey).(string)
	return token
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	// Fields maps field names to messages for validation failures.
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Errors
// outside the taxonomy are logged with their concrete cause and
// surfaced as a generic failure.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Fields: validation.Fields,
		})
		return
	}

	var duplicate *store.DuplicateError
	if errors.As(err, &duplicate) {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:  "already taken",
			Fields: map[string]string{duplicate.Field: "already taken"},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, services.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound is the JSON fallback for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}
