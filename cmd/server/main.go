package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "warehouse-engine/internal/adapters/web"

	"warehouse-engine/internal/adapters/cache"
	"warehouse-engine/internal/app"
	"warehouse-engine/internal/core"
	"warehouse-engine/internal/db"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	recalc := core.NewStatusRecalculator()
	availabilityService := core.NewAvailabilityService(pool)
	itemService := core.NewItemService(pool, recalc)
	requestService := core.NewRequestService(pool, availabilityService)
	approvalService := core.NewApprovalService(pool, recalc)
	userService := core.NewUserService(pool)

	// The availability cache is optional: without REDIS_ADDR every stock
	// snapshot is computed from the database.
	var infoCache app.AvailabilityInfoCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: redis unreachable at %s, caching disabled: %v", addr, err)
		} else {
			infoCache = cache.NewAvailabilityCache(client, 0)
			log.Printf("availability cache enabled via %s", addr)
		}
	}

	svc := app.NewAppService(pool, itemService, requestService, availabilityService, approvalService, userService, infoCache)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
