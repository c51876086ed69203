package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/PabloPachecoB/pizza4u/internal/cartserver"
	"github.com/PabloPachecoB/pizza4u/internal/cartserver/repository"
	"github.com/PabloPachecoB/pizza4u/internal/domain"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	port := getEnv("CART_SERVICE_PORT", "8081")
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDBName := getEnv("MONGO_DB_NAME", "cartdb")

	ctx := context.Background()
	db, err := repository.Connect(ctx, mongoURI, mongoDBName)
	if err != nil {
		logger.Fatal("mongodb connection failed", zap.Error(err))
	}
	defer db.Client().Disconnect(ctx)
	logger.Info("mongodb connected", zap.String("uri", mongoURI))

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal("creating indexes failed", zap.Error(err))
	}

	repo := repository.NewMongoRepository(db)
	server := cartserver.NewServer(repo, loadPromos(logger), getEnvInt("MAX_QUANTITY_PER_ITEM", 20), logger)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: server.Routes(),
	}

	go func() {
		logger.Info("cart service listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down cart service")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	logger.Info("cart service stopped")
}

func loadPromos(logger *zap.Logger) map[string]domain.Discount {
	promos := map[string]domain.Discount{
		"PIZZA20": {Code: "PIZZA20", Kind: domain.DiscountPercentage, Value: 20, Description: "20% off your order"},
	}

	raw := os.Getenv("PROMOS")
	if raw == "" {
		return promos
	}

	var list []domain.Discount
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		logger.Warn("invalid PROMOS value, using defaults", zap.Error(err))
		return promos
	}
	promos = map[string]domain.Discount{}
	for _, d := range list {
		promos[d.Code] = d
	}
	return promos
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
