package main

import (
	"log"
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rah-ai/financial-daily-summary/db"
	"github.com/rah-ai/financial-daily-summary/internal/config"
	"github.com/rah-ai/financial-daily-summary/internal/handler"
	"github.com/rah-ai/financial-daily-summary/internal/logging"
	"github.com/rah-ai/financial-daily-summary/internal/repository"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	err = db.Connect(cfg.Storage.DatabaseURL)
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	digestRepo := repository.NewDigestRepository(db.DB)
	digestHandler := handler.NewDigestHandler(digestRepo)

	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}

	if cfg.API.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.API.FrontendURL)
	}

	slog.Info("AllowOrigins URL:", "urls", allowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	r.GET("/digests/latest", digestHandler.GetLatestDigest)
	r.GET("/digests", digestHandler.GetDigests)
	r.GET("/health", digestHandler.GetHealth)

	err = r.Run(cfg.API.Addr)
	if err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
