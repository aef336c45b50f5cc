package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bloggery/apiserver/internal/services"
	"github.com/bloggery/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// UserHandler serves the public roster of registered users.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers public user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService) {
	handler := NewUserHandler(userService)

	r.Get("/", handler.ListUsers)
	r.Get("/{userID}", handler.GetUser)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
