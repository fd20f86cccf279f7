package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bocado/internal/cache"
	"bocado/internal/catalog"
	"bocado/internal/config"
	"bocado/internal/health"
	"bocado/internal/platform/logger"
	"bocado/internal/platform/mongodb"
	"bocado/internal/recommend"
	"bocado/internal/server"
)

func main() {
	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongo, err := mongodb.ConnectWithRetry(ctx, 10, log)
	if err != nil {
		log.Fatal("mongodb unavailable", "error", err)
	}
	defer mongo.Disconnect(context.Background())

	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "bocado"
	}
	repo := catalog.NewMongoRepository(
		mongo.Collection(dbName, "dishes"),
		mongo.Collection(dbName, "dish_ratings"),
		mongo.Collection(dbName, "venue_ratings"),
	)

	redisClient := cache.NewRedisClient(log)
	results := cache.NewResults(redisClient, cfg.CacheTTL, log)

	svc := recommend.NewService(cfg, repo, results, log)
	recHandler := recommend.NewHandler(svc)
	healthHandler := health.NewHandler(health.NewService(mongo, redisClient, svc.SnapshotAge))

	router := server.NewRouter(log, recHandler, healthHandler)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info("http server listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("http server stopped", "error", err)
	}
}
