// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store backends selectable via SHORTKV_STORE_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port string

	StoreBackend string
	SQLitePath   string
	PostgresDSN  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// DeleteKey is the administrative secret gating account deletion.
	DeleteKey string

	// AMQPURL enables click-event publishing when set.
	AMQPURL    string
	ClickQueue string
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads the .env file (if any) and the environment.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found, relying on env vars: %v", err)
	}

	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	return &Config{
		Port:          getenv("PORT", "1818"),
		StoreBackend:  getenv("SHORTKV_STORE_BACKEND", BackendSQLite),
		SQLitePath:    getenv("SHORTKV_DB_PATH", "shortkv.db"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		DeleteKey:     os.Getenv("DELETE_KEY"),
		AMQPURL:       os.Getenv("RABBITMQ_URL"),
		ClickQueue:    getenv("CLICK_QUEUE_NAME", "shortkv.clicks"),
	}
}
