package interactions

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// AttachSubpost writes the post's single follow-up update. The author check
// and the at-most-once check run inside the same transaction as the write,
// so two racing attach attempts cannot both land. After the write commits,
// one notification is created per subscription row for the post; a failed
// notification write is logged per recipient and never rolls back the
// subpost.
func (m *Mutators) AttachSubpost(ctx context.Context, postID, authorID, content string) error {
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		doc, err := tx.Get(ctx, models.PostsCollection, postID)
		if err != nil {
			return err
		}
		post := models.PostFromDocument(doc)
		if post.AuthorID != authorID {
			return ErrNotAuthor
		}
		if post.Subpost != nil {
			return ErrSubpostExists
		}
		return tx.Update(ctx, models.PostsCollection, postID, map[string]any{
			"subpost": map[string]any{
				"content":   content,
				"createdAt": time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return fmt.Errorf("attach subpost to %s: %w", postID, err)
	}

	m.fanOutSubpostNotifications(ctx, postID)
	return nil
}

// fanOutSubpostNotifications is best-effort; failures leave the subpost in
// place and some recipients unnotified.
func (m *Mutators) fanOutSubpostNotifications(ctx context.Context, postID string) {
	subs, err := m.store.RunQuery(ctx,
		store.NewQuery(models.SubscriptionsCollection).Where("subscribedToId", postID))
	if err != nil {
		log.Printf("list subscriptions for post %s: %v", postID, err)
		return
	}
	for _, doc := range subs {
		sub := models.SubscriptionFromDocument(doc)
		_, err := m.store.Add(ctx, models.NotificationsCollection, map[string]any{
			"userId":    sub.SubscriberID,
			"type":      models.NotificationTypeSubpost,
			"message":   models.SubpostNotificationMessage,
			"postId":    postID,
			"createdAt": time.Now().UTC(),
		})
		if err != nil {
			log.Printf("notify subscriber %s of post %s: %v", sub.SubscriberID, postID, err)
		}
	}
}
