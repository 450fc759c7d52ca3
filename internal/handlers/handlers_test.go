package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jameboyyy/Prayerwall/internal/interactions"
	"github.com/Jameboyyy/Prayerwall/internal/middleware"
	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/readers"
	"github.com/Jameboyyy/Prayerwall/internal/store"
	"github.com/Jameboyyy/Prayerwall/validators"
)

const testSecret = "test-secret-key"

// setupTestApp builds an Echo app over a fresh in-memory store with the full
// route surface and JWT authentication.
func setupTestApp(t *testing.T) (*echo.Echo, *store.MemoryStore) {
	t.Helper()

	s := store.NewMemoryStore()
	e := echo.New()
	e.Validator = validators.NewValidator()

	userReader := readers.NewUserReader(s)
	postReader := readers.NewPostReader(s)
	mutators := interactions.NewMutators(s)

	authGroup := e.Group("/api/v1/auth")
	NewAuthHandler(s, nil, testSecret).RegisterAuthRoutes(authGroup)

	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(testSecret))
	NewUserHandler(s, userReader, nil).RegisterUserRoutes(api)
	NewPostHandler(s, userReader, mutators).RegisterPostRoutes(api)
	NewFeedHandler(s, userReader).RegisterFeedRoutes(api)
	NewCommentHandler(s, userReader, mutators).RegisterCommentRoutes(api)
	NewLikeHandler(mutators).RegisterLikeRoutes(api)
	NewSubscriptionHandler(mutators).RegisterSubscriptionRoutes(api)
	NewNotificationHandler(s, postReader, userReader).RegisterNotificationRoutes(api)

	return e, s
}

func doJSON(e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// signupUser registers a user and returns its id and session token.
func signupUser(t *testing.T, e *echo.Echo, username string) (userID, token string) {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":      username + "@example.com",
		"password":   "password123",
		"username":   username,
		"first_name": "Test",
		"last_name":  "User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	return body["user_id"].(string), body["token"].(string)
}

func TestSignupAndSignin(t *testing.T) {
	e, _ := setupTestApp(t)

	userID, token := signupUser(t, e, "grace")
	assert.NotEmpty(t, userID)
	assert.NotEmpty(t, token)

	// Duplicate username is rejected.
	rec := doJSON(e, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":      "other@example.com",
		"password":   "password123",
		"username":   "grace",
		"first_name": "Other",
		"last_name":  "User",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"email":    "grace@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["token"])

	rec = doJSON(e, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"email":    "grace@example.com",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e, _ := setupTestApp(t)

	rec := doJSON(e, http.MethodGet, "/api/v1/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/feed", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndReadPost(t *testing.T) {
	e, _ := setupTestApp(t)
	userID, token := signupUser(t, e, "grace")

	rec := doJSON(e, http.MethodPost, "/api/v1/posts", token, map[string]string{
		"title":   "Please pray",
		"content": "for my family",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	postID := decodeBody(t, rec)["id"].(string)

	rec = doJSON(e, http.MethodGet, "/api/v1/posts/"+postID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Please pray", body["title"])
	assert.Equal(t, userID, body["author_id"])
	assert.Equal(t, "grace", body["author_name"])
	assert.Equal(t, float64(0), body["likes_count"])

	rec = doJSON(e, http.MethodGet, "/api/v1/posts/does-not-exist", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Missing title fails validation.
	rec = doJSON(e, http.MethodPost, "/api/v1/posts", token, map[string]string{
		"content": "no title",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePostAuthorOnly(t *testing.T) {
	e, _ := setupTestApp(t)
	_, authorToken := signupUser(t, e, "author")
	_, otherToken := signupUser(t, e, "other")

	rec := doJSON(e, http.MethodPost, "/api/v1/posts", authorToken, map[string]string{
		"title": "Original", "content": "body",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	postID := decodeBody(t, rec)["id"].(string)

	rec = doJSON(e, http.MethodPut, "/api/v1/posts/"+postID, otherToken, map[string]string{
		"title": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodPut, "/api/v1/posts/"+postID, authorToken, map[string]string{
		"title": "Edited",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLikeEndpoint(t *testing.T) {
	e, _ := setupTestApp(t)
	_, token := signupUser(t, e, "grace")

	rec := doJSON(e, http.MethodPost, "/api/v1/posts", token, map[string]string{
		"title": "Like me", "content": "body",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	postID := decodeBody(t, rec)["id"].(string)

	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/v1/posts/%s/like", postID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["liked"])
	assert.Equal(t, float64(1), body["likes_count"])

	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/v1/posts/%s/like", postID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, false, body["liked"])
	assert.Equal(t, float64(0), body["likes_count"])

	rec = doJSON(e, http.MethodPost, "/api/v1/posts/missing/like", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubpostEndpoint(t *testing.T) {
	e, _ := setupTestApp(t)
	_, authorToken := signupUser(t, e, "author")
	_, friendToken := signupUser(t, e, "friend")

	rec := doJSON(e, http.MethodPost, "/api/v1/posts", authorToken, map[string]string{
		"title": "Request", "content": "body",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	postID := decodeBody(t, rec)["id"].(string)

	// Friend subscribes before the update lands.
	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/v1/posts/%s/subscribe", postID), friendToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["subscribed"])

	// Only the author can attach a subpost.
	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/v1/posts/%s/subpost", postID), friendToken, map[string]string{
		"content": "not yours",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/v1/posts/%s/subpost", postID), authorToken, map[string]string{
		"content": "Prayers answered",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Second attach conflicts.
	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/v1/posts/%s/subpost", postID), authorToken, map[string]string{
		"content": "again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The friend got exactly one notification, joined with post data.
	rec = doJSON(e, http.MethodGet, "/api/v1/notifications", friendToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notifs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifs))
	require.Len(t, notifs, 1)
	assert.Equal(t, "Request", notifs[0]["post_title"])
	assert.Equal(t, "Prayers answered", notifs[0]["subpost_content"])
	assert.Equal(t, "author", notifs[0]["author_name"])
}

func TestCommentsEndpoint(t *testing.T) {
	e, _ := setupTestApp(t)
	_, token := signupUser(t, e, "grace")

	rec := doJSON(e, http.MethodPost, "/api/v1/posts", token, map[string]string{
		"title": "Request", "content": "body",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	postID := decodeBody(t, rec)["id"].(string)

	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/v1/posts/%s/comments", postID), token, map[string]string{
		"text": "praying for you",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/api/v1/posts/%s/comments", postID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "praying for you", comments[0]["text"])
	assert.Equal(t, "grace", comments[0]["author_name"])

	rec = doJSON(e, http.MethodGet, "/api/v1/posts/missing/comments", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeedEndpoint(t *testing.T) {
	e, s := setupTestApp(t)
	userID, token := signupUser(t, e, "grace")

	base := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		_, err := s.Add(context.Background(), models.PostsCollection, map[string]any{
			"userId":    userID,
			"title":     title,
			"content":   "body",
			"createdAt": base.Add(time.Duration(i) * time.Minute),
			"likes":     []string{},
		})
		require.NoError(t, err)
	}

	rec := doJSON(e, http.MethodGet, "/api/v1/feed", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 3)
	assert.Equal(t, "third", items[0]["title"])
	assert.Equal(t, "first", items[2]["title"])
	assert.Equal(t, "grace", items[0]["author_name"])
}

func TestProfileEndpoints(t *testing.T) {
	e, _ := setupTestApp(t)
	userID, token := signupUser(t, e, "grace")

	rec := doJSON(e, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "grace", body["username"])
	assert.Equal(t, float64(0), body["post_count"])

	rec = doJSON(e, http.MethodPost, "/api/v1/posts", token, map[string]string{
		"title": "One", "content": "body",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// postCount is re-derived on every profile read.
	rec = doJSON(e, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["post_count"])

	rec = doJSON(e, http.MethodPut, "/api/v1/users/me", token, map[string]string{
		"first_name": "Grace",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Grace", decodeBody(t, rec)["first_name"])

	rec = doJSON(e, http.MethodGet, "/api/v1/users/search?username=grace", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, userID, found[0]["id"])
}
