package models

import (
	"time"

	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// Notification types.
const NotificationTypeSubpost = "subpost"

// SubpostNotificationMessage is the message written for subpost fan-out.
const SubpostNotificationMessage = "A post you subscribed to was updated!"

// Notification is one fan-out document addressed to a single recipient.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationFromDocument decodes an untyped notification document.
func NotificationFromDocument(doc store.Document) Notification {
	return Notification{
		ID:        doc.ID,
		UserID:    stringField(doc.Data, "userId"),
		Type:      stringField(doc.Data, "type"),
		Message:   stringField(doc.Data, "message"),
		PostID:    stringField(doc.Data, "postId"),
		CreatedAt: timeField(doc.Data, "createdAt"),
	}
}
