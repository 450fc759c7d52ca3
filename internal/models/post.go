package models

import (
	"time"

	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// Subpost is the single author-authored follow-up a post may carry.
type Subpost struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a prayer request. Likes is the canonical set of user ids; older
// documents stored a bare integer counter instead, which decodes into
// LegacyLikeCount and is replaced by a set the first time someone toggles.
type Post struct {
	ID              string    `json:"id"`
	AuthorID        string    `json:"author_id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"created_at"`
	Likes           []string  `json:"likes"`
	LegacyLikeCount int       `json:"-"`
	Subpost         *Subpost  `json:"subpost,omitempty"`
}

// PostFromDocument decodes an untyped post document, tolerating both likes
// shapes and a missing subpost.
func PostFromDocument(doc store.Document) Post {
	p := Post{
		ID:        doc.ID,
		AuthorID:  stringField(doc.Data, "userId"),
		Title:     stringField(doc.Data, "title"),
		Content:   stringField(doc.Data, "content"),
		CreatedAt: timeField(doc.Data, "createdAt"),
	}
	if likes, ok := stringSliceField(doc.Data, "likes"); ok {
		p.Likes = likes
	} else if count, ok := intField(doc.Data, "likes"); ok {
		p.LegacyLikeCount = count
	} else {
		p.Likes = []string{}
	}
	if raw, ok := mapField(doc.Data, "subpost"); ok {
		p.Subpost = &Subpost{
			Content:   stringField(raw, "content"),
			CreatedAt: timeField(raw, "createdAt"),
		}
	}
	return p
}

// LikeCount returns the number of likes regardless of the stored shape.
func (p Post) LikeCount() int {
	if p.Likes != nil {
		return len(p.Likes)
	}
	return p.LegacyLikeCount
}

// LikedBy reports whether the given user is in the likes set. Legacy counter
// posts carry no per-user state, so the answer is always false there.
func (p Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// CreatePostRequest defines the request body for creating a post.
type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=120"`
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// UpdatePostRequest defines the request body for editing a post.
type UpdatePostRequest struct {
	Title   string `json:"title,omitempty" validate:"omitempty,min=1,max=120"`
	Content string `json:"content,omitempty" validate:"omitempty,min=1,max=2000"`
}

// SubpostRequest defines the request body for attaching a subpost.
type SubpostRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}
