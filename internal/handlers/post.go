package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bloggery/apiserver/internal/services"
	"github.com/bloggery/apiserver/internal/store"
	"github.com/bloggery/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// PostHandler provides HTTP handlers for blog posts. All routes sit
// behind the session guard, reads included.
type PostHandler struct {
	postService *services.PostService
}

func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// PostRouter registers post routes on the given router.
func PostRouter(r chi.Router, postService *services.PostService, requireSession func(http.Handler) http.Handler) {
	handler := NewPostHandler(postService)

	r.Use(requireSession)
	r.Get("/", handler.ListPosts)
	r.Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		r.Put("/", handler.UpdatePost)
		r.Delete("/", handler.DeletePost)
	})
}

type PostRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
	Author  string `json:"author" validate:"required,max=255"`
	Slug    string `json:"slug" validate:"required,max=255"`
}

// PostListResponse is the paginated list payload.
type PostListResponse struct {
	Items []types.Post `json:"items"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int          `json:"total"`
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.postService.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PostListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	req, err := decodePostRequest(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := h.postService.Create(r.Context(), types.Post{
		Title:   req.Title,
		Content: req.Content,
		Author:  req.Author,
		Slug:    req.Slug,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := decodePostRequest(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, err := h.postService.Update(r.Context(), types.Post{
		ID:      id,
		Title:   req.Title,
		Content: req.Content,
		Author:  req.Author,
		Slug:    req.Slug,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.postService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func decodePostRequest(r *http.Request) (PostRequest, error) {
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return PostRequest{}, &services.ValidationError{
			Fields: map[string]string{"body": "invalid request"},
		}
	}
	if err := validateStruct(req); err != nil {
		return PostRequest{}, err
	}
	return req, nil
}

func parsePostID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "postID"))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid post id")
	}
	return id, nil
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, fmt.Errorf("invalid page")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			return 0, 0, 0, fmt.Errorf("invalid limit")
		}
	}

	return page, limit, (page - 1) * limit, nil
}
