package services

import (
	"context"
	"strings"

	"github.com/bloggery/apiserver/types"
)

// PostRepository defines persistence operations for blog posts.
type PostRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Post, int, error)
	Get(ctx context.Context, id int) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id int) error
}

// PostService encapsulates blog post use-cases. The author field is a
// free label, not a reference to an account.
type PostService struct {
	repo PostRepository
}

func NewPostService(repo PostRepository) *PostService {
	return &PostService{repo: repo}
}

func (s *PostService) List(ctx context.Context, offset, limit int) ([]types.Post, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *PostService) Get(ctx context.Context, id int) (types.Post, error) {
	return s.repo.Get(ctx, id)
}

func (s *PostService) Create(ctx context.Context, post types.Post) (types.Post, error) {
	if err := validatePost(&post); err != nil {
		return types.Post{}, err
	}
	return s.repo.Create(ctx, post)
}

func (s *PostService) Update(ctx context.Context, post types.Post) (types.Post, error) {
	if err := validatePost(&post); err != nil {
		return types.Post{}, err
	}
	return s.repo.Update(ctx, post)
}

func (s *PostService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func validatePost(post *types.Post) error {
	fields := fieldErrors{}
	post.Title = strings.TrimSpace(post.Title)
	post.Content = strings.TrimSpace(post.Content)
	post.Author = strings.TrimSpace(post.Author)
	post.Slug = strings.TrimSpace(post.Slug)

	if post.Title == "" {
		fields.set("title", "required")
	}
	if post.Content == "" {
		fields.set("content", "required")
	}
	if post.Author == "" {
		fields.set("author", "required")
	}
	if post.Slug == "" {
		fields.set("slug", "required")
	}
	return fields.err()
}
