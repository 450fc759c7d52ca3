package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Jameboyyy/Prayerwall/internal/feed"
	"github.com/Jameboyyy/Prayerwall/internal/interactions"
	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/readers"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// PostHandler handles post creation, reads and edits.
type PostHandler struct {
	store    store.Store
	users    *readers.UserReader
	mutators *interactions.Mutators
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(s store.Store, users *readers.UserReader, m *interactions.Mutators) *PostHandler {
	return &PostHandler{store: s, users: users, mutators: m}
}

// RegisterPostRoutes registers post CRUD routes.
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.POST("/posts/:id/subpost", h.AttachSubpost)
	g.GET("/users/:id/posts", h.GetUserPosts)
}

// CreatePost writes a new post authored by the signed-in user.
func (h *PostHandler) CreatePost(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	id, err := h.mutators.CreatePost(c.Request().Context(), identity.ID, req.Title, req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create post")
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// GetPost returns a single post resolved into a display-ready item.
func (h *PostHandler) GetPost(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	doc, err := h.store.Get(ctx, models.PostsCollection, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	items := feed.BuildItems(ctx, h.store, h.users, identity.ID, []store.Document{doc})
	return c.JSON(http.StatusOK, items[0])
}

// UpdatePost edits a post's title or content. Only the author may edit.
func (h *PostHandler) UpdatePost(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err = h.mutators.UpdatePost(c.Request().Context(), c.Param("id"), identity.ID, req.Title, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, interactions.ErrNotAuthor):
			return echo.NewHTTPError(http.StatusForbidden, "Only the author can edit this post")
		case errors.Is(err, store.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update post")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Post updated"})
}

// AttachSubpost adds the one-time follow-up to a post and notifies
// subscribers.
func (h *PostHandler) AttachSubpost(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req models.SubpostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err = h.mutators.AttachSubpost(c.Request().Context(), c.Param("id"), identity.ID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, interactions.ErrNotAuthor):
			return echo.NewHTTPError(http.StatusForbidden, "Only the author can add a subpost")
		case errors.Is(err, interactions.ErrSubpostExists):
			return echo.NewHTTPError(http.StatusConflict, "Post already has a subpost")
		case errors.Is(err, store.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to add subpost")
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Subpost added"})
}

// GetUserPosts returns one author's posts, newest first, resolved into feed
// items.
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	docs, err := h.store.RunQuery(ctx, store.NewQuery(models.PostsCollection).
		Where("userId", c.Param("id")).
		OrderedBy("createdAt", true))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, feed.BuildItems(ctx, h.store, h.users, identity.ID, docs))
}
