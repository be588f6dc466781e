package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shortkv/shortkv/pkg/shortkv/config"
	"github.com/shortkv/shortkv/pkg/shortkv/events"
	"github.com/shortkv/shortkv/pkg/shortkv/health"
	"github.com/shortkv/shortkv/pkg/shortkv/links"
	"github.com/shortkv/shortkv/pkg/shortkv/redirect"
	"github.com/shortkv/shortkv/pkg/shortkv/store"
	"github.com/shortkv/shortkv/pkg/shortkv/users"
)

const healthCheckInterval = 15 * time.Second

func main() {
	cfg := config.Load()

	// A failed store bootstrap must not kill the process: the server still
	// answers health checks and refuses everything else via the gate.
	kv, err := openStore(cfg)
	if err != nil {
		log.Printf("Failed to connect to store: %v", err)
	} else {
		log.Printf("Connected to %s store", cfg.StoreBackend)
	}

	checker := health.NewChecker(kv, healthCheckInterval, err)
	checker.Start(context.Background())

	publisher := openPublisher(cfg)
	defer publisher.Close()

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "shortkv"})
	})
	r.GET("/health", func(c *gin.Context) {
		if checker.Healthy() {
			c.JSON(200, gin.H{"status": "ok"})
			return
		}
		c.JSON(503, gin.H{"status": "error", "error": "Error in connecting to database"})
	})

	// Everything below the gate needs a live store connection
	gated := r.Group("", health.Gate(checker))

	linksHandler := links.NewHandler(kv)
	linksHandler.RegisterRoutes(gated)

	usersHandler := users.NewHandler(kv, cfg.DeleteKey)
	usersHandler.RegisterRoutes(gated.Group("/user"))

	redirectHandler := redirect.NewHandler(kv, publisher)
	redirectHandler.RegisterRoutes(gated)

	log.Printf("Starting shortkv server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		s := store.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			return s, err
		}
		return s, nil
	case config.BackendPostgres:
		s, err := store.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func openPublisher(cfg *config.Config) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.NopPublisher{}
	}
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.ClickQueue)
	if err != nil {
		log.Printf("Click events disabled, RabbitMQ unavailable: %v", err)
		return events.NopPublisher{}
	}
	log.Printf("Publishing click events to queue %s", cfg.ClickQueue)
	return p
}
