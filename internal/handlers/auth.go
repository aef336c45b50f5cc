package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bloggery/apiserver/internal/services"
	"github.com/bloggery/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AuthHandler provides registration, login, and self-service account
// endpoints backed by server-side sessions.
type AuthHandler struct {
	userService *services.UserService
	sessionTTL  time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessionTTL:  sessionTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, sessionTTL time.Duration) {
	handler := NewAuthHandler(userService, sessionTTL)
	requireSession := RequireSession(userService)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(requireSession).Get("/me", handler.Me)
	r.With(requireSession).Put("/me", handler.UpdateMe)
	r.With(requireSession).Delete("/me", handler.DeleteMe)
}

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=32"`
	Name            string `json:"name" validate:"required,max=120"`
	Email           string `json:"email" validate:"required,email"`
	FavoriteColor   string `json:"favorite_color" validate:"max=120"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateMeRequest struct {
	Username      string `json:"username" validate:"required,min=3,max=32"`
	Name          string `json:"name" validate:"required,max=120"`
	Email         string `json:"email" validate:"required,email"`
	FavoriteColor string `json:"favorite_color" validate:"max=120"`
}

// LoginResponse returns the session token alongside the account. The
// token also travels in the session cookie for browser clients.
type LoginResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// Register creates a new account. The response never includes the
// credential, hashed or otherwise.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validateStruct(req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.userService.Register(r.Context(), services.RegisterInput{
		Username:        req.Username,
		Name:            req.Name,
		Email:           req.Email,
		FavoriteColor:   req.FavoriteColor,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login verifies credentials, issues a session, and sets the session
// cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validateStruct(req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, user, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// Logout revokes the presented session and clears the cookie. It
// succeeds for anonymous callers too.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.userService.Logout(r.Context(), token); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the account bound to the session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe edits the session's own account. The target id comes from
// the session, never from the request.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validateStruct(req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.userService.UpdateSelf(r.Context(), tokenFromContext(r.Context()), services.UpdateSelfInput{
		Username:      req.Username,
		Name:          req.Name,
		Email:         req.Email,
		FavoriteColor: req.FavoriteColor,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// DeleteMe permanently removes the session's own account and clears
// the cookie.
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.DeleteSelf(r.Context(), tokenFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "account deleted"})
}
