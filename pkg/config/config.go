package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port                    string
	Env                     string
	StoreBackend            string // memory | firestore | mongo | postgres
	AuthMode                string // jwt | firebase
	FirebaseCredentialsPath string
	MongoURI                string
	MongoDatabase           string
	PostgresConnStr         string
	GCSBucket               string
	JWTSecret               string
	PollInterval            time.Duration
}

// Load reads the configuration, letting a .env file fill in anything the
// environment does not set.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		StoreBackend:            getEnv("STORE_BACKEND", "memory"),
		AuthMode:                getEnv("AUTH_MODE", "jwt"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "prayerwall"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		GCSBucket:               getEnv("GCS_BUCKET", ""),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		PollInterval:            getDurationEnv("STORE_POLL_INTERVAL", time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s, using default %s", key, defaultValue)
	}
	return defaultValue
}
