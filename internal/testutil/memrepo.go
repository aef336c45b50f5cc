// Package testutil provides in-memory repository fakes for tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bloggery/apiserver/internal/store"
	"github.com/bloggery/apiserver/types"
)

// MemUserRepo is a map-backed replacement for store.UserRepository.
// It reproduces the store's uniqueness and not-found behavior,
// including atomic enforcement at insert/update time.
type MemUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[int]types.User
}

func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{users: make(map[int]types.User)}
}

func (r *MemUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *MemUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *MemUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *MemUserRepo) List(ctx context.Context) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]types.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *MemUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUnique(user, 0); err != nil {
		return types.User{}, err
	}
	r.seq++
	user.ID = r.seq
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return user, nil
}

func (r *MemUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	if err := r.checkUnique(user, user.ID); err != nil {
		return types.User{}, err
	}
	user.CreatedAt = r.users[user.ID].CreatedAt
	r.users[user.ID] = user
	return user, nil
}

func (r *MemUserRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// Len reports the number of stored users.
func (r *MemUserRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *MemUserRepo) checkUnique(user types.User, selfID int) error {
	for _, other := range r.users {
		if other.ID == selfID {
			continue
		}
		if other.Username == user.Username {
			return &store.DuplicateError{Field: "username"}
		}
		if other.Email == user.Email {
			return &store.DuplicateError{Field: "email"}
		}
	}
	return nil
}

// MemPostRepo is a map-backed replacement for store.PostRepository.
type MemPostRepo struct {
	mu    sync.Mutex
	seq   int
	posts map[int]types.Post
}

func NewMemPostRepo() *MemPostRepo {
	return &MemPostRepo{posts: make(map[int]types.Post)}
}

func (r *MemPostRepo) List(ctx context.Context, offset, limit int) ([]types.Post, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	all := make([]types.Post, 0, len(r.posts))
	for _, post := range r.posts {
		all = append(all, post)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if offset >= total {
		return []types.Post{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *MemPostRepo) Get(ctx context.Context, id int) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (r *MemPostRepo) Create(ctx context.Context, post types.Post) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	post.ID = r.seq
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	r.posts[post.ID] = post
	return post, nil
}

func (r *MemPostRepo) Update(ctx context.Context, post types.Post) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.posts[post.ID]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = time.Now()
	r.posts[post.ID] = post
	return post, nil
}

func (r *MemPostRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}
