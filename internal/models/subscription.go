package models

import (
	"time"

	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// Subscription records that a user wants to be notified when a post gets its
// subpost. Existence of the row is the subscribed state; toggling off deletes
// it.
type Subscription struct {
	ID             string    `json:"id"`
	SubscriberID   string    `json:"subscriber_id"`
	SubscribedToID string    `json:"subscribed_to_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// SubscriptionFromDocument decodes an untyped subscription document.
func SubscriptionFromDocument(doc store.Document) Subscription {
	return Subscription{
		ID:             doc.ID,
		SubscriberID:   stringField(doc.Data, "subscriberId"),
		SubscribedToID: stringField(doc.Data, "subscribedToId"),
		CreatedAt:      timeField(doc.Data, "createdAt"),
	}
}
