package interactions

import (
	"context"
	"fmt"

	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// ToggleLike flips the acting user's membership in the post's likes set
// inside a single store transaction, so concurrent toggles by different
// users never lose an update. Posts still carrying the legacy integer
// counter are migrated to a set on first toggle; the old count is not kept.
func (m *Mutators) ToggleLike(ctx context.Context, postID, userID string) (liked bool, count int, err error) {
	err = m.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		doc, err := tx.Get(ctx, models.PostsCollection, postID)
		if err != nil {
			return err
		}
		post := models.PostFromDocument(doc)

		next := make([]string, 0, len(post.Likes)+1)
		liked = true
		for _, id := range post.Likes {
			if id == userID {
				liked = false
				continue
			}
			next = append(next, id)
		}
		if liked {
			next = append(next, userID)
		}
		count = len(next)

		return tx.Update(ctx, models.PostsCollection, postID, map[string]any{"likes": next})
	})
	if err != nil {
		return false, 0, fmt.Errorf("toggle like on %s: %w", postID, err)
	}
	return liked, count, nil
}
