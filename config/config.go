// config/config.go
package config

import (
	"log"
	"os"
	"time"
)

var (
	Port          string
	Env           string
	LogLevel      string
	MongoURI      string
	DatabaseName  string
	JWTKey        []byte
	JWTExpiration time.Duration

	// Shared secret the payment provider signs webhook payloads with.
	PaymentWebhookSecret string
	// Gate for the simulated payment endpoint (non-production only).
	DevWebhookSecret string
)

func LoadConfig() {
	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "8080"
	}

	Env = os.Getenv("ENV")
	if Env == "" {
		Env = "development"
	}

	LogLevel = os.Getenv("LOG_LEVEL")

	MongoURI = os.Getenv("MONGO_URI")
	if MongoURI == "" {
		MongoURI = "mongodb://localhost:27017"
	}

	DatabaseName = os.Getenv("DB_NAME")
	if DatabaseName == "" {
		DatabaseName = "assetverse"
	}

	JWTKey = []byte(os.Getenv("JWT_SECRET"))
	if len(JWTKey) == 0 {
		JWTKey = []byte("secret")
	}

	PaymentWebhookSecret = os.Getenv("PAYMENT_WEBHOOK_SECRET")
	DevWebhookSecret = os.Getenv("DEV_WEBHOOK_SECRET")

	expireStr := os.Getenv("JWT_EXPIRE")
	dur := 24 * time.Hour
	if expireStr != "" {
		if expireStr == "7d" {
			dur = 7 * 24 * time.Hour
		} else {
			var err error
			dur, err = time.ParseDuration(expireStr)
			if err != nil {
				log.Printf("Invalid JWT_EXPIRE: %s, using 24h", expireStr)
				dur = 24 * time.Hour
			}
		}
	}
	JWTExpiration = dur
}
