// Package readers resolves document ids into display-ready view models.
// Every resolution is a fresh remote read; readers never cache.
package readers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// Fallback display names for unresolvable authors.
const (
	UnknownUsername   = "Unknown"
	AnonymousUsername = "Anonymous"
)

// UserReader fetches user documents and shapes them into view models.
type UserReader struct {
	store store.Store
}

// NewUserReader creates a UserReader over the given store.
func NewUserReader(s store.Store) *UserReader {
	return &UserReader{store: s}
}

// Username resolves a user id to a display name. Missing documents and read
// failures degrade to "Unknown"; an empty id (legacy rows with no author)
// degrades to "Anonymous". Never returns an empty string.
func (r *UserReader) Username(ctx context.Context, id string) string {
	if id == "" {
		return AnonymousUsername
	}
	doc, err := r.store.Get(ctx, models.UsersCollection, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("resolve username for %s: %v", id, err)
		}
		return UnknownUsername
	}
	user := models.UserFromDocument(doc)
	if user.Username == "" {
		return UnknownUsername
	}
	return user.Username
}

// Profile fetches a full user view model.
func (r *UserReader) Profile(ctx context.Context, id string) (models.User, error) {
	doc, err := r.store.Get(ctx, models.UsersCollection, id)
	if err != nil {
		return models.User{}, err
	}
	return models.UserFromDocument(doc), nil
}

// PostReader fetches post documents and shapes them into view models.
type PostReader struct {
	store store.Store
}

// NewPostReader creates a PostReader over the given store.
func NewPostReader(s store.Store) *PostReader {
	return &PostReader{store: s}
}

// Get fetches a single post.
func (r *PostReader) Get(ctx context.Context, id string) (models.Post, error) {
	doc, err := r.store.Get(ctx, models.PostsCollection, id)
	if err != nil {
		return models.Post{}, fmt.Errorf("read post: %w", err)
	}
	return models.PostFromDocument(doc), nil
}
