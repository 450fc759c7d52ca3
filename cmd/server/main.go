package main

import (
	"context"
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Jameboyyy/Prayerwall/internal/router"
	"github.com/Jameboyyy/Prayerwall/internal/storage"
	"github.com/Jameboyyy/Prayerwall/internal/store"
	"github.com/Jameboyyy/Prayerwall/pkg/config"
	"github.com/Jameboyyy/Prayerwall/pkg/firebase"
	"github.com/Jameboyyy/Prayerwall/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()
	ctx := context.Background()

	// Initialize Firebase when credentials are configured. The firestore
	// backend and firebase auth mode both require it.
	var firebaseApp *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		firebaseApp = app
	}

	// Initialize the document store backend
	docs, cleanup, err := initStore(ctx, cfg, firebaseApp)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.StoreBackend, err)
	}
	defer cleanup()
	log.Printf("Document store backend: %s", cfg.StoreBackend)

	// Initialize file storage when a bucket is configured
	var uploader storage.Uploader
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, cfg.GCSBucket, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize GCS uploader: %v", err)
		}
		uploader = gcs
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	var authClient *auth.Client
	if firebaseApp != nil {
		authClient = firebaseApp.AuthClient
	}
	router.SetupRoutes(e, cfg, docs, authClient, uploader)

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

func initStore(ctx context.Context, cfg *config.Config, firebaseApp *firebase.App) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "firestore":
		if firebaseApp == nil {
			log.Fatal("firestore backend requires FIREBASE_CREDENTIALS_PATH")
		}
		client, err := firebaseApp.Firestore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return store.NewFirestoreStore(client), func() { client.Close() }, nil

	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, err
		}
		log.Println("Connected to MongoDB!")
		s := store.NewMongoStore(client.Database(cfg.MongoDatabase))
		return s, func() { _ = client.Disconnect(context.Background()) }, nil

	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.PostgresConnStr), &gorm.Config{})
		if err != nil {
			return nil, nil, err
		}
		log.Println("Connected to PostgreSQL!")
		s, err := store.NewPostgresStore(db, cfg.PollInterval)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case "memory":
		return store.NewMemoryStore(), func() {}, nil
	}
	log.Fatalf("Unknown STORE_BACKEND %q", cfg.StoreBackend)
	return nil, nil, nil
}
