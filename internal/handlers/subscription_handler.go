package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Jameboyyy/Prayerwall/internal/interactions"
)

// SubscriptionHandler toggles and reports post subscriptions.
type SubscriptionHandler struct {
	mutators *interactions.Mutators
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(m *interactions.Mutators) *SubscriptionHandler {
	return &SubscriptionHandler{mutators: m}
}

// RegisterSubscriptionRoutes registers subscription routes.
func (h *SubscriptionHandler) RegisterSubscriptionRoutes(g *echo.Group) {
	g.POST("/posts/:id/subscribe", h.ToggleSubscription)
	g.GET("/posts/:id/subscription", h.GetSubscription)
}

// ToggleSubscription flips the viewer's subscription to the post and returns
// the resulting state.
func (h *SubscriptionHandler) ToggleSubscription(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	subscribed, err := h.mutators.ToggleSubscription(c.Request().Context(), c.Param("id"), identity.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to toggle subscription")
	}
	return c.JSON(http.StatusOK, echo.Map{"subscribed": subscribed})
}

// GetSubscription reports whether the viewer is subscribed to the post.
func (h *SubscriptionHandler) GetSubscription(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	subscribed, err := h.mutators.IsSubscribed(c.Request().Context(), c.Param("id"), identity.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to check subscription")
	}
	return c.JSON(http.StatusOK, echo.Map{"subscribed": subscribed})
}
