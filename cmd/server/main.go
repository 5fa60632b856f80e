package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"radreview/internal/cache"
	"radreview/internal/config"
	"radreview/internal/service"
	"radreview/internal/store"
	"radreview/internal/transport/rest"
	"radreview/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg := config.Load()
	log.Printf("Record API: %s (timeout %s)", cfg.RecordAPIBaseURL, cfg.RequestTimeout)

	// Redis connection (remote-data caches only; evaluation state is
	// in-memory and starts empty on every restart)
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize caches
	metricCache := cache.NewMetricCache(rdb)
	caseCache := cache.NewCaseCache(rdb)

	// Initialize state store and services
	evalStore := store.NewEvalStore()
	recordClient := service.NewRecordClient(cfg.RecordAPIBaseURL, cfg.RequestTimeout)
	evalSvc := service.NewEvalService(recordClient, evalStore, metricCache, caseCache)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	evalSvc.SetBroadcaster(wsHub)

	// Create router with container
	router := rest.NewRouter(&rest.Container{
		EvalService: evalSvc,
		WSHub:       wsHub,
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  GET  /v1/session")
		log.Println("  GET  /v1/metrics")
		log.Println("  GET  /v1/doctors/{doctorId}/cases")
		log.Println("  GET  /v1/cases/{caseId}")
		log.Println("  GET  /v1/cases/{caseId}/state")
		log.Println("  PUT  /v1/cases/{caseId}/scores")
		log.Println("  POST /v1/cases/{caseId}/submit")
		log.Println("  WS   /v1/ws/evaluators/{doctorId}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
