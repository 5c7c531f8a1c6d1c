package main

import (
	"baseroom/auth"
	"baseroom/chatroom"
	"baseroom/config"
	"baseroom/db/postgres"
	"baseroom/db/sqlite"
	"baseroom/logs"
	"baseroom/main/routes"
	"baseroom/metrics"
	"baseroom/rooms"
	"baseroom/store"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func rateLimitErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(http.StatusTooManyRequests, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
}

func openStore(cfg config.Config) (store.Adapter, error) {
	switch cfg.DBDriver {
	case "sqlite3", "sqlite":
		return sqlite.Open(cfg.DBFile)
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return postgres.Open(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	return cors.New(corsConfig)
}

func main() {
	cfg := config.Load()
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	// Init DB
	adapter, err := openStore(cfg)
	if err != nil {
		logs.Error.Fatal("Error opening database: ", err)
	}
	defer adapter.Close()

	m := metrics.New()
	hub := chatroom.NewHub(cfg.CORSOrigins)
	server := &routes.Server{
		Rooms:         rooms.NewController(adapter, hub, m),
		Auth:          auth.NewService(adapter, cfg.JWTSecret, cfg.SessionTTL),
		Hub:           hub,
		Metrics:       m,
		SecureCookies: cfg.Production,
	}

	// Setup Gin
	r := gin.Default()

	// Rate Limiting
	limitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: cfg.RateLimit,
	})
	r.Use(ratelimit.RateLimiter(limitStore, &ratelimit.Options{
		ErrorHandler: rateLimitErrorHandler,
		KeyFunc:      keyFunc,
	}))

	// CORS
	r.Use(corsMiddleware(cfg.CORSOrigins))

	server.Setup(r)

	httpServer := &http.Server{
		Addr:    cfg.Port,
		Handler: r,
	}

	go func() {
		logs.Info.Printf("Starting server on port %s...", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Error.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	// Wait for SIGINT or SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logs.Info.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logs.Error.Printf("Server forced to shutdown: %v", err)
		return
	}
	logs.Info.Println("Server exited cleanly.")
}
