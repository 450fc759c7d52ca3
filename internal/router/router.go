package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/Jameboyyy/Prayerwall/internal/handlers"
	"github.com/Jameboyyy/Prayerwall/internal/interactions"
	"github.com/Jameboyyy/Prayerwall/internal/middleware"
	"github.com/Jameboyyy/Prayerwall/internal/readers"
	"github.com/Jameboyyy/Prayerwall/internal/storage"
	"github.com/Jameboyyy/Prayerwall/internal/store"
	"github.com/Jameboyyy/Prayerwall/pkg/config"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies.
// firebaseAuthClient and uploader may be nil; the routes that need them
// respond 503 when they are absent.
func SetupRoutes(e *echo.Echo, cfg *config.Config, docs store.Store, firebaseAuthClient *auth.Client, uploader storage.Uploader) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	userReader := readers.NewUserReader(docs)
	postReader := readers.NewPostReader(docs)
	mutators := interactions.NewMutators(docs)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(docs, firebaseAuthClient, cfg.JWTSecret)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes ---
	api := e.Group("/api/v1")
	if cfg.AuthMode == "firebase" {
		api.Use(middleware.FirebaseAuthMiddleware(firebaseAuthClient))
		log.Println("Firebase authentication middleware applied to /api/v1 group.")
	} else {
		api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
		log.Println("JWT authentication middleware applied to /api/v1 group.")
	}

	// User profile routes
	userHandler := handlers.NewUserHandler(docs, userReader, uploader)
	userHandler.RegisterUserRoutes(api)
	log.Println("User profile routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(docs, userReader, mutators)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Feed routes
	feedHandler := handlers.NewFeedHandler(docs, userReader)
	feedHandler.RegisterFeedRoutes(api)
	log.Println("Feed routes configured.")

	// Comment routes
	commentHandler := handlers.NewCommentHandler(docs, userReader, mutators)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	// Like routes
	likeHandler := handlers.NewLikeHandler(mutators)
	likeHandler.RegisterLikeRoutes(api)
	log.Println("Like routes configured.")

	// Subscription routes
	subscriptionHandler := handlers.NewSubscriptionHandler(mutators)
	subscriptionHandler.RegisterSubscriptionRoutes(api)
	log.Println("Subscription routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(docs, postReader, userReader)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	log.Println("All routes configured.")
}
