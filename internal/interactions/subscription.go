package interactions

import (
	"context"
	"fmt"
	"time"

	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// ToggleSubscription creates the (subscriber, post) subscription row when
// absent and deletes it when present, returning the resulting state. The
// check and the write are separate store calls, not a transaction: two rapid
// toggles by the same user can race into a duplicate row or a missed
// deletion. Every shipped version of the app behaved this way.
func (m *Mutators) ToggleSubscription(ctx context.Context, postID, subscriberID string) (subscribed bool, err error) {
	existing, err := m.store.RunQuery(ctx,
		store.NewQuery(models.SubscriptionsCollection).
			Where("subscriberId", subscriberID).
			Where("subscribedToId", postID))
	if err != nil {
		return false, fmt.Errorf("check subscription for %s: %w", postID, err)
	}

	if len(existing) > 0 {
		if err := m.store.Delete(ctx, models.SubscriptionsCollection, existing[0].ID); err != nil {
			return false, fmt.Errorf("unsubscribe from %s: %w", postID, err)
		}
		return false, nil
	}

	_, err = m.store.Add(ctx, models.SubscriptionsCollection, map[string]any{
		"subscriberId":   subscriberID,
		"subscribedToId": postID,
		"createdAt":      time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("subscribe to %s: %w", postID, err)
	}
	return true, nil
}

// IsSubscribed reports whether a subscription row exists for (subscriber,
// post). The state is always derived by query, never stored on the post.
func (m *Mutators) IsSubscribed(ctx context.Context, postID, subscriberID string) (bool, error) {
	existing, err := m.store.RunQuery(ctx,
		store.NewQuery(models.SubscriptionsCollection).
			Where("subscriberId", subscriberID).
			Where("subscribedToId", postID))
	if err != nil {
		return false, fmt.Errorf("check subscription for %s: %w", postID, err)
	}
	return len(existing) > 0, nil
}
