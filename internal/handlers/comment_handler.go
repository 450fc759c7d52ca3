package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Jameboyyy/Prayerwall/internal/interactions"
	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/readers"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// CommentHandler handles the comment thread under a post.
type CommentHandler struct {
	store    store.Store
	users    *readers.UserReader
	mutators *interactions.Mutators
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(s store.Store, users *readers.UserReader, m *interactions.Mutators) *CommentHandler {
	return &CommentHandler{store: s, users: users, mutators: m}
}

// RegisterCommentRoutes registers comment routes.
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/posts/:id/comments", h.GetComments)
	g.POST("/posts/:id/comments", h.CreateComment)
}

// commentView is one display-ready comment row.
type commentView struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// GetComments returns a post's comments oldest first, with author names
// resolved per row.
func (h *CommentHandler) GetComments(c echo.Context) error {
	if _, err := currentIdentity(c); err != nil {
		return err
	}

	ctx := c.Request().Context()
	postID := c.Param("id")
	if _, err := h.store.Get(ctx, models.PostsCollection, postID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	docs, err := h.store.RunQuery(ctx,
		store.NewQuery(models.CommentsCollection(postID)).OrderedBy("createdAt", false))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	views := make([]commentView, 0, len(docs))
	for _, doc := range docs {
		comment := models.CommentFromDocument(postID, doc)
		views = append(views, commentView{
			ID:         comment.ID,
			AuthorID:   comment.AuthorID,
			AuthorName: h.users.Username(ctx, comment.AuthorID),
			Text:       comment.Text,
			CreatedAt:  comment.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, views)
}

// CreateComment appends a comment to a post's thread.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	id, err := h.mutators.AddComment(c.Request().Context(), c.Param("id"), identity.ID, req.Text)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to add comment")
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}
