package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fieldsurvey/internal/cache"
	"fieldsurvey/internal/config"
	"fieldsurvey/internal/log"
	"fieldsurvey/internal/metrics"
	"fieldsurvey/internal/repository"
	"fieldsurvey/internal/service"
	"fieldsurvey/internal/transport/rest"
	"fieldsurvey/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Configure(cfg.LogFormat, cfg.LogLevel)
	log.Println("started")
	ctx := context.Background()

	// MongoDB connection. Untyped sub-documents decode as bson.M so answer
	// values compare the same way on every read.
	clientOpts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	mongoClient, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to ping Redis: %v", err)
	}
	log.Println("Connected to Redis")

	m := metrics.New("fieldsurvey")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	wsHub.SetMetrics(m)
	log.Println("WebSocket hub started")

	// Initialize repositories
	surveyRepo := repository.NewSurveyRepo(db)
	responseRepo := repository.NewResponseRepo(db)
	reportRepo := repository.NewReportRepo(db)

	indexCtx, indexCancel := context.WithTimeout(ctx, 30*time.Second)
	surveyRepo.EnsureIndexes(indexCtx)
	responseRepo.EnsureIndexes(indexCtx)
	indexCancel()

	// Initialize caches
	surveyCache := cache.NewSurveyCache(rdb, cfg.SurveyCacheTTL)
	reportCache := cache.NewReportCache(rdb, cfg.ReportCacheTTL)
	guard := cache.NewSubmissionGuard(rdb)

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWTSecret)
	resolver := service.NewSurveyResolver(surveyRepo, cfg.Aliases)
	resolver.SetCache(surveyCache)

	dedup := service.NewDuplicateSuppressor(responseRepo, cfg.DuplicateWindow)
	dedup.SetGuard(guard)

	responseSvc := service.NewResponseService(responseRepo, resolver, dedup, cfg.DuplicateAnonScope)
	responseSvc.SetBroadcaster(wsHub)
	responseSvc.SetReportCache(reportCache)
	responseSvc.SetMetrics(m)

	reportSvc := service.NewReportService(reportRepo, resolver, cfg.ReportTimezone)
	reportSvc.SetCache(reportCache)
	reportSvc.SetMetrics(m)

	router := rest.NewRouter(&rest.Container{
		AuthService:     authSvc,
		ResponseService: responseSvc,
		ReportService:   reportSvc,
		Resolver:        resolver,
		WSHub:           wsHub,
		Metrics:         m,
		CORS: rest.CORS{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: cfg.CORSAllowedMethods,
			AllowedHeaders: cfg.CORSAllowedHeaders,
		},
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  POST/GET /responses")
		log.Println("  GET  /responses/{crosstab,analytics,daily-report,summary-report,spatial-report}")
		log.Println("  WS   /ws/surveys/{surveyId}/feed")
		log.Println("  GET  /health /metrics /swagger/doc.json")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
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
		log.Errorf("Server forced to shutdown: %v", err)
	}
	wsHub.Close()

	log.Println("Server exited")
}
