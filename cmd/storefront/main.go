package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/PabloPachecoB/pizza4u/internal/checkout"
	"github.com/PabloPachecoB/pizza4u/internal/domain"
	"github.com/PabloPachecoB/pizza4u/internal/engine"
	"github.com/PabloPachecoB/pizza4u/internal/store/localredis"
	"github.com/PabloPachecoB/pizza4u/internal/store/remote"
	"github.com/PabloPachecoB/pizza4u/internal/storefront"
	"github.com/PabloPachecoB/pizza4u/internal/syncpolicy"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	port := getEnv("PORT", "8080")
	cartServiceURL := getEnv("CART_SERVICE_URL", "http://localhost:8081")
	remoteTimeout := getEnvDuration("CART_SERVICE_TIMEOUT", 3*time.Second)

	cfg := domain.CartConfig{
		TaxRate:            getEnvFloat("TAX_RATE", 0.10),
		DeliveryThreshold:  getEnvFloat("DELIVERY_THRESHOLD", 50),
		DeliveryFee:        getEnvFloat("DELIVERY_FEE", 5),
		MaxQuantityPerItem: getEnvInt("MAX_QUANTITY_PER_ITEM", 20),
	}

	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	logger.Info("redis connected", zap.String("addr", redisClient.Options().Addr))

	local := localredis.New(redisClient)
	remoteStore := remote.New(cartServiceURL, remoteTimeout)
	guestPromos := loadPromos(logger)

	factory := func(ownerID string, authenticated bool) *engine.Engine {
		auth := func() (string, bool) { return ownerID, authenticated }
		policy := syncpolicy.New(remoteStore, local, auth, logger,
			syncpolicy.WithTimeout(remoteTimeout))

		var validator engine.DiscountValidator = guestPromos
		if authenticated {
			validator = remoteStore.ValidatorFor(ownerID)
		}
		return engine.New(cfg, policy, validator, logger)
	}

	sessions := storefront.NewSessions(factory, logger)
	handler := storefront.NewHandler(sessions, logger)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		consumer := checkout.NewConsumer(sessions, logger, strings.Split(brokers, ",")...)
		defer consumer.Close()
		go consumer.Run(consumerCtx)
		logger.Info("checkout consumer started", zap.String("brokers", brokers))
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Routes(),
	}

	go func() {
		logger.Info("storefront listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down storefront")
	stopConsumer()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	logger.Info("storefront stopped")
}

// loadPromos reads the guest promo table from the PROMOS env var, a JSON
// array of discounts. Guests validate codes locally; signed-in sessions go
// through the cart service.
func loadPromos(logger *zap.Logger) engine.StaticValidator {
	promos := engine.StaticValidator{
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
	promos = engine.StaticValidator{}
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
