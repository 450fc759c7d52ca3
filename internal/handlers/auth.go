package handlers

import (
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// AuthHandler handles registration and sign-in. Both paths end with a
// locally-minted JWT that the API middleware verifies; the Firebase path
// additionally creates the profile document on first login.
type AuthHandler struct {
	store        store.Store
	firebaseAuth *auth.Client
	jwtSecret    string
}

// NewAuthHandler creates a new AuthHandler. firebaseAuthClient may be nil
// when the deployment runs without Firebase.
func NewAuthHandler(s store.Store, firebaseAuthClient *auth.Client, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		store:        s,
		firebaseAuth: firebaseAuthClient,
		jwtSecret:    jwtSecret,
	}
}

// RegisterAuthRoutes registers authentication-related routes.
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Signup handles local registration with email and password. The username
// must be globally unique; uniqueness is checked by query before the write
// (a known gap: nothing server-side enforces it between check and write).
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()

	taken, err := h.usernameTaken(c, req.Username)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if taken {
		return echo.NewHTTPError(http.StatusConflict, "Username already taken")
	}

	existing, err := h.store.RunQuery(ctx,
		store.NewQuery(models.UsersCollection).Where("email", req.Email))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(existing) > 0 {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	id, err := h.store.Add(ctx, models.UsersCollection, map[string]any{
		"username":     req.Username,
		"firstName":    req.FirstName,
		"lastName":     req.LastName,
		"email":        req.Email,
		"passwordHash": string(hashedPassword),
		"postCount":    0,
		"createdAt":    time.Now().UTC(),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	token, err := h.generateJWT(id, req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token after signup")
	}
	return c.JSON(http.StatusCreated, echo.Map{"token": token, "user_id": id})
}

// SignIn handles local authentication with email and password.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SigninRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	docs, err := h.store.RunQuery(c.Request().Context(),
		store.NewQuery(models.UsersCollection).Where("email", req.Email))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(docs) == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not found with email: "+req.Email)
	}
	user := models.UserFromDocument(docs[0])

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid password")
	}

	token, err := h.generateJWT(user.ID, user.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user_id": user.ID})
}

// FirebaseLogin verifies a Firebase ID token, creates the profile document
// on first login (keyed by the Firebase UID) and issues a local JWT.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase authentication is not configured")
	}

	var req models.FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	email, _ := token.Claims["email"].(string)
	if _, err := h.store.Get(ctx, models.UsersCollection, token.UID); err != nil {
		username := ""
		if name, ok := token.Claims["name"].(string); ok {
			username = name
		}
		if username == "" && email != "" {
			username = strings.SplitN(email, "@", 2)[0]
		}
		err := h.store.Update(ctx, models.UsersCollection, token.UID, map[string]any{
			"username":  username,
			"email":     email,
			"postCount": 0,
			"createdAt": time.Now().UTC(),
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user profile")
		}
	}

	localJWT, err := h.generateJWT(token.UID, email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": localJWT, "user_id": token.UID})
}

func (h *AuthHandler) usernameTaken(c echo.Context, username string) (bool, error) {
	docs, err := h.store.RunQuery(c.Request().Context(),
		store.NewQuery(models.UsersCollection).Where("username", username))
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// generateJWT mints the API session token.
func (h *AuthHandler) generateJWT(userID, email string) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
