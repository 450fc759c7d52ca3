package models

import (
	"time"

	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// Comment lives in a post's comments sub-collection. Comments are
// append-only; no flow edits or deletes them.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentFromDocument decodes an untyped comment document.
func CommentFromDocument(postID string, doc store.Document) Comment {
	return Comment{
		ID:        doc.ID,
		PostID:    postID,
		AuthorID:  stringField(doc.Data, "userId"),
		Text:      stringField(doc.Data, "text"),
		CreatedAt: timeField(doc.Data, "createdAt"),
	}
}

// CreateCommentRequest defines the request body for adding a comment.
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}
