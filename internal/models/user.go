package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// User is a profile document in the users collection. The document id is the
// auth identity (Firebase UID, or a generated id for local accounts).
type User struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Email             string    `json:"email,omitempty"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	PostCount         int       `json:"post_count"`
	CreatedAt         time.Time `json:"created_at"`
	PasswordHash      string    `json:"-"`
}

// UserFromDocument decodes an untyped profile document, defaulting every
// missing field.
func UserFromDocument(doc store.Document) User {
	count, _ := intField(doc.Data, "postCount")
	return User{
		ID:                doc.ID,
		Username:          stringField(doc.Data, "username"),
		FirstName:         stringField(doc.Data, "firstName"),
		LastName:          stringField(doc.Data, "lastName"),
		Email:             stringField(doc.Data, "email"),
		ProfilePictureURL: stringField(doc.Data, "profilePicture"),
		PostCount:         count,
		CreatedAt:         timeField(doc.Data, "createdAt"),
		PasswordHash:      stringField(doc.Data, "passwordHash"),
	}
}

// SignupRequest defines the request body for local registration.
type SignupRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Username  string `json:"username" validate:"required,min=3,max=30"`
	FirstName string `json:"first_name" validate:"required,min=1,max=50"`
	LastName  string `json:"last_name" validate:"required,min=1,max=50"`
}

// SigninRequest defines the request body for local sign-in.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// FirebaseLoginRequest defines the request body for Firebase login.
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// UpdateProfileRequest defines the request body for editing a profile.
type UpdateProfileRequest struct {
	Username  string `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	FirstName string `json:"first_name,omitempty" validate:"omitempty,min=1,max=50"`
	LastName  string `json:"last_name,omitempty" validate:"omitempty,min=1,max=50"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims.
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
