package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auctionsite/internal/api/handlers"
	"auctionsite/internal/config"
	"auctionsite/internal/infrastructure/clock"
	"auctionsite/internal/infrastructure/crypto"
	"auctionsite/internal/infrastructure/leader"
	"auctionsite/internal/infrastructure/mysql"
	"auctionsite/internal/infrastructure/redis"
	"auctionsite/internal/services"
	"auctionsite/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting auction site service")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}(db)

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	// Test MySQL connection and provision the schema
	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	if err := mysql.Provision(ctx, db); err != nil {
		log.Error("Failed to provision schema", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Initialize infrastructure
	store := mysql.NewStore(db)
	sysClock := clock.NewSystem()
	creds := crypto.NewPBKDF2Store()
	eventPublisher := redis.NewEventPublisher(rdb)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	// Initialize services
	sessionManager := services.NewSessionManager(store, sysClock, creds, log)
	auctionEngine := services.NewAuctionEngine(store, sysClock, sessionManager, eventPublisher, log)
	siteService := services.NewSiteService(store, sysClock, creds, log)

	// Leader-guarded maintenance: close ended auctions, sweep sessions
	maintenance := services.NewMaintenanceJob(store, sysClock, leaderElection, siteService, cfg.Instance.ID, log)
	if err := maintenance.Start(context.Background()); err != nil {
		log.Error("Failed to start maintenance job", "error", err)
		os.Exit(1)
	}

	// Advisory in-process sweep between maintenance passes
	if err := siteService.WatchExpiredSessions(cfg.Maintenance.SessionSweepInterval); err != nil {
		log.Error("Failed to arm session watch", "error", err)
		os.Exit(1)
	}

	// Try to become leader
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became maintenance leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(middleware.Recover())

	// Initialize handlers
	siteHandler := handlers.NewSiteHandler(siteService, sessionManager, log)
	auctionHandler := handlers.NewAuctionHandler(auctionEngine, siteService, log)

	// API routes
	api := e.Group("/api/v1")
	api.POST("/sites", siteHandler.CreateSite)
	api.GET("/sites", siteHandler.SiteInfos)
	api.DELETE("/sites/:site", siteHandler.DeleteSite)
	api.GET("/sites/:site/now", siteHandler.SiteNow)
	api.POST("/sites/:site/users", siteHandler.CreateUser)
	api.GET("/sites/:site/users", siteHandler.ListUsers)
	api.DELETE("/sites/:site/users/:username", siteHandler.DeleteUser)
	api.GET("/sites/:site/sessions", siteHandler.ListSessions)
	api.POST("/sites/:site/login", siteHandler.Login)
	api.POST("/sessions/:id/logout", siteHandler.Logout)
	api.POST("/sessions/:id/auctions", auctionHandler.CreateAuction)
	api.GET("/sites/:site/auctions", auctionHandler.ListAuctions)
	api.GET("/sites/:site/users/:username/won", auctionHandler.WonAuctions)
	api.POST("/auctions/:id/bids", auctionHandler.Bid)
	api.GET("/auctions/:id", auctionHandler.GetAuction)
	api.DELETE("/auctions/:id", auctionHandler.DeleteAuction)

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auctionsite",
			"timestamp": time.Now().Format(time.RFC3339),
			"port":      cfg.Server.Port,
		})
	})

	// Start server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting HTTP server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := maintenance.Stop(); err != nil {
		log.Error("Failed to stop maintenance job", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down server", "error", err)
	}
	if err := rdb.Close(); err != nil {
		log.Error("Failed to close Redis connection", "error", err)
	}

	log.Info("Shutdown complete")
}
