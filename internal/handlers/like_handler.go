package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Jameboyyy/Prayerwall/internal/interactions"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// LikeHandler toggles the signed-in user's like on a post.
type LikeHandler struct {
	mutators *interactions.Mutators
}

// NewLikeHandler creates a new LikeHandler.
func NewLikeHandler(m *interactions.Mutators) *LikeHandler {
	return &LikeHandler{mutators: m}
}

// RegisterLikeRoutes registers like routes.
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:id/like", h.ToggleLike)
}

// ToggleLike flips the viewer's like on the post and returns the resulting
// state.
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	liked, count, err := h.mutators.ToggleLike(c.Request().Context(), c.Param("id"), identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to toggle like")
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked, "likes_count": count})
}
