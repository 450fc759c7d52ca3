package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/readers"
	"github.com/Jameboyyy/Prayerwall/internal/storage"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// UserHandler handles profile reads, edits and picture uploads.
type UserHandler struct {
	store    store.Store
	users    *readers.UserReader
	uploader storage.Uploader
}

// NewUserHandler creates a new UserHandler. uploader may be nil when no
// bucket is configured.
func NewUserHandler(s store.Store, users *readers.UserReader, uploader storage.Uploader) *UserHandler {
	return &UserHandler{store: s, users: users, uploader: uploader}
}

// RegisterUserRoutes registers profile-related routes.
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users/me", h.GetMe)
	g.PUT("/users/me", h.UpdateMe)
	g.POST("/users/me/picture", h.UploadPicture)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
}

// GetMe returns the authenticated user's profile. The cached postCount is
// recomputed from the posts collection on every read, the way the profile
// screen always re-derived it.
func (h *UserHandler) GetMe(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	return h.profileResponse(c, identity.ID)
}

// GetUser returns another user's public profile.
func (h *UserHandler) GetUser(c echo.Context) error {
	if _, err := currentIdentity(c); err != nil {
		return err
	}
	return h.profileResponse(c, c.Param("id"))
}

func (h *UserHandler) profileResponse(c echo.Context, userID string) error {
	ctx := c.Request().Context()
	user, err := h.users.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	posts, err := h.store.RunQuery(ctx,
		store.NewQuery(models.PostsCollection).Where("userId", userID))
	if err == nil {
		user.PostCount = len(posts)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe edits the authenticated user's profile fields. A changed username
// is re-checked for uniqueness.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	fields := map[string]any{}
	if req.Username != "" {
		docs, err := h.store.RunQuery(ctx,
			store.NewQuery(models.UsersCollection).Where("username", req.Username))
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if len(docs) > 0 && docs[0].ID != identity.ID {
			return echo.NewHTTPError(http.StatusConflict, "Username already taken")
		}
		fields["username"] = req.Username
	}
	if req.FirstName != "" {
		fields["firstName"] = req.FirstName
	}
	if req.LastName != "" {
		fields["lastName"] = req.LastName
	}
	if len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Nothing to update")
	}

	if err := h.store.Update(ctx, models.UsersCollection, identity.ID, fields); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.profileResponse(c, identity.ID)
}

// UploadPicture stores a new profile picture and saves its public URL on the
// profile document.
func (h *UserHandler) UploadPicture(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	if h.uploader == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "File storage is not configured")
	}

	fileHeader, err := c.FormFile("picture")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing picture file")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable picture file")
	}
	defer src.Close()

	dest := fmt.Sprintf("profile_pictures/%s_%d%s",
		identity.ID, time.Now().Unix(), path.Ext(fileHeader.Filename))
	url, err := h.uploader.Upload(c.Request().Context(), src, dest,
		fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to upload picture")
	}

	err = h.store.Update(c.Request().Context(), models.UsersCollection, identity.ID,
		map[string]any{"profilePicture": url})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"profile_picture_url": url})
}

// SearchUsers finds a profile by exact username.
func (h *UserHandler) SearchUsers(c echo.Context) error {
	if _, err := currentIdentity(c); err != nil {
		return err
	}
	username := c.QueryParam("username")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing username query parameter")
	}

	docs, err := h.store.RunQuery(c.Request().Context(),
		store.NewQuery(models.UsersCollection).Where("username", username))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	users := make([]models.User, len(docs))
	for i, doc := range docs {
		users[i] = models.UserFromDocument(doc)
	}
	return c.JSON(http.StatusOK, users)
}
