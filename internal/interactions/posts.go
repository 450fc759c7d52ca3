package interactions

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// CreatePost writes a new post with an empty likes set, then refreshes the
// author's cached postCount. The cache refresh is best-effort; the count may
// transiently diverge and is recomputed on profile reads anyway.
func (m *Mutators) CreatePost(ctx context.Context, authorID, title, content string) (string, error) {
	id, err := m.store.Add(ctx, models.PostsCollection, map[string]any{
		"userId":    authorID,
		"title":     title,
		"content":   content,
		"createdAt": time.Now().UTC(),
		"likes":     []string{},
	})
	if err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}

	m.refreshPostCount(ctx, authorID)
	return id, nil
}

// UpdatePost edits a post's title and content. Only the author may edit;
// empty arguments leave the corresponding field unchanged.
func (m *Mutators) UpdatePost(ctx context.Context, postID, editorID, title, content string) error {
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		doc, err := tx.Get(ctx, models.PostsCollection, postID)
		if err != nil {
			return err
		}
		post := models.PostFromDocument(doc)
		if post.AuthorID != editorID {
			return ErrNotAuthor
		}
		fields := map[string]any{}
		if title != "" {
			fields["title"] = title
		}
		if content != "" {
			fields["content"] = content
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Update(ctx, models.PostsCollection, postID, fields)
	})
	if err != nil {
		return fmt.Errorf("update post %s: %w", postID, err)
	}
	return nil
}

// AddComment appends a comment to the post's comments sub-collection.
func (m *Mutators) AddComment(ctx context.Context, postID, authorID, text string) (string, error) {
	if _, err := m.store.Get(ctx, models.PostsCollection, postID); err != nil {
		return "", err
	}
	id, err := m.store.Add(ctx, models.CommentsCollection(postID), map[string]any{
		"userId":    authorID,
		"text":      text,
		"createdAt": time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("add comment to %s: %w", postID, err)
	}
	return id, nil
}

func (m *Mutators) refreshPostCount(ctx context.Context, authorID string) {
	posts, err := m.store.RunQuery(ctx,
		store.NewQuery(models.PostsCollection).Where("userId", authorID))
	if err != nil {
		log.Printf("refresh post count for %s: %v", authorID, err)
		return
	}
	err = m.store.Update(ctx, models.UsersCollection, authorID, map[string]any{
		"postCount": len(posts),
	})
	if err != nil {
		log.Printf("refresh post count for %s: %v", authorID, err)
	}
}
