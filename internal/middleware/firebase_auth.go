package middleware

import (
	"fmt"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"github.com/Jameboyyy/Prayerwall/internal/session"
)

// FirebaseAuthMiddleware verifies Firebase ID tokens and attaches the
// identity they carry. The user document id equals the Firebase UID.
func FirebaseAuthMiddleware(authClient *auth.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			token, err := authClient.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf("Invalid or expired ID token: %v", err))
			}

			email, _ := token.Claims["email"].(string)
			c.Set(identityKey, &session.Identity{ID: token.UID, Email: email})
			return next(c)
		}
	}
}
