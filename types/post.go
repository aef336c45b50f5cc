package types

import "time"

// Post represents a blog post.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// Title is the human-readable title of the post.
	Title string `json:"title" db:"title"`

	// Content is the full body of the post.
	Content string `json:"content" db:"content"`

	// Author is a free-form author label. It is intentionally not a
	// reference to a user record.
	Author string `json:"author" db:"author"`

	// Slug is the URL-friendly identifier of the post.
	Slug string `json:"slug" db:"slug"`

	// CreatedAt is the timestamp at which the post was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the post.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
