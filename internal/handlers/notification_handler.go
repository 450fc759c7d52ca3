package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/readers"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// NotificationHandler serves the signed-in user's notification list.
type NotificationHandler struct {
	store store.Store
	posts *readers.PostReader
	users *readers.UserReader
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(s store.Store, posts *readers.PostReader, users *readers.UserReader) *NotificationHandler {
	return &NotificationHandler{store: s, posts: posts, users: users}
}

// RegisterNotificationRoutes registers notification routes.
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
}

// notificationView is one display-ready notification row: the stored fan-out
// document joined with the referenced post's current title, subpost and
// author name.
type notificationView struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	PostID         string    `json:"post_id"`
	PostTitle      string    `json:"post_title"`
	PostContent    string    `json:"post_content"`
	SubpostContent string    `json:"subpost_content"`
	AuthorName     string    `json:"author_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// GetNotifications returns the viewer's notifications newest first. Each row
// re-reads its post at render time; a notification whose post has since been
// deleted is skipped.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	docs, err := h.store.RunQuery(ctx, store.NewQuery(models.NotificationsCollection).
		Where("userId", identity.ID).
		OrderedBy("createdAt", true))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	views := make([]notificationView, 0, len(docs))
	for _, doc := range docs {
		n := models.NotificationFromDocument(doc)
		post, err := h.posts.Get(ctx, n.PostID)
		if err != nil {
			continue
		}
		subpost := "No subpost"
		if post.Subpost != nil {
			subpost = post.Subpost.Content
		}
		views = append(views, notificationView{
			ID:             n.ID,
			Type:           n.Type,
			Message:        n.Message,
			PostID:         n.PostID,
			PostTitle:      post.Title,
			PostContent:    post.Content,
			SubpostContent: subpost,
			AuthorName:     h.users.Username(ctx, post.AuthorID),
			CreatedAt:      n.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, views)
}
