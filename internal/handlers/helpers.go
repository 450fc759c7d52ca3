package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Jameboyyy/Prayerwall/internal/middleware"
	"github.com/Jameboyyy/Prayerwall/internal/session"
)

// currentIdentity returns the authenticated identity or a 401.
func currentIdentity(c echo.Context) (*session.Identity, error) {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return id, nil
}
