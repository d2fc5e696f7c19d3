package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"finstack-p2p.backend/internal/config"
	"finstack-p2p.backend/internal/domain/repositories"
	"finstack-p2p.backend/internal/infrastructure/backend"
	"finstack-p2p.backend/internal/infrastructure/events"
	"finstack-p2p.backend/internal/infrastructure/jobs"
	"finstack-p2p.backend/internal/infrastructure/kvstore"
	"finstack-p2p.backend/internal/infrastructure/metrics"
	"finstack-p2p.backend/internal/infrastructure/models"
	"finstack-p2p.backend/internal/infrastructure/release"
	sqlrepos "finstack-p2p.backend/internal/infrastructure/repositories"
	"finstack-p2p.backend/internal/interfaces/http/handlers"
	"finstack-p2p.backend/internal/interfaces/http/middleware"
	"finstack-p2p.backend/internal/usecases"
	"finstack-p2p.backend/pkg/jwt"
	"finstack-p2p.backend/pkg/logger"
	"finstack-p2p.backend/pkg/redis"
)

const (
	serviceName    = "finstack-p2p-backend"
	serviceVersion = "0.1.0"
	hubBuffer      = 16
	shutdownGrace  = 10 * time.Second
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.InitWithSink
	initRedis  = redis.Init
	openDB     = openSQLDB
	runServer  = func(srv *http.Server) error { return srv.ListenAndServe() }
	stopSignal = func() <-chan os.Signal {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		return quit
	}
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

// stores holds the repositories of the selected store driver
type stores struct {
	ads      repositories.AdRepository
	orders   repositories.OrderRepository
	profiles repositories.MerchantProfileRepository
	uow      repositories.UnitOfWork
	close    func() error
}

func openSQLDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{PrepareStmt: false}
	switch cfg.Driver {
	case "postgres", "":
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.URL(),
			PreferSimpleProtocol: true,
		}), gcfg)
	case "mysql":
		return gorm.Open(mysql.Open(cfg.MySQLDSN()), gcfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.Path), gcfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

func buildStores(cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case "kv", "":
		store := kvstore.NewStore(redis.GetClient())
		return &stores{
			ads:      kvstore.NewAdRepository(store),
			orders:   kvstore.NewOrderRepository(store),
			profiles: kvstore.NewMerchantProfileRepository(store),
			uow:      store,
			close:    func() error { return nil },
		}, nil
	case "sql":
		db, err := openDB(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.AutoMigrate(models.All()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get generic database object: %w", err)
		}
		return &stores{
			ads:      sqlrepos.NewAdRepository(db),
			orders:   sqlrepos.NewOrderRepository(db),
			profiles: sqlrepos.NewMerchantProfileRepository(db),
			uow:      sqlrepos.NewUnitOfWork(db),
			close:    sqlDB.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Store.Driver)
	}
}

func buildAuthorizer(cfg *config.Config, client *backend.Client) usecases.ReleaseAuthorizer {
	if cfg.Release.Mode == "local" {
		return release.NewLocalAuthorizer(release.LocalConfig{
			CodeTTL:     cfg.Release.CodeTTL,
			MaxAttempts: cfg.Release.MaxAttempts,
			ExposeCode:  cfg.Release.ExposeCode,
		})
	}
	return release.NewBackendAuthorizer(client, cfg.Release.CodeTTL)
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env, logger.FileSink{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer logger.Sync()
	ctx := context.Background()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(ctx, "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, err := config.LoadCatalog(cfg.Catalog.File)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	st, err := buildStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()
	logger.Info(ctx, "Store ready", zap.String("driver", cfg.Store.Driver))

	m := metrics.New()
	hub := events.NewHub(hubBuffer, m)
	client := backend.NewClient(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		RateLimit: cfg.Backend.RateLimit,
		RateBurst: cfg.Backend.RateBurst,
	}, m)
	if !client.Configured() {
		logger.Warn(ctx, "FINSTACK_BACKEND_API_URL is not set, proxy routes will fail")
	}
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	adUsecase := usecases.NewAdUsecase(st.ads, st.uow, catalog)
	orderUsecase := usecases.NewOrderUsecase(st.orders, st.ads, st.uow, hub, m)
	releaseUsecase := usecases.NewReleaseUsecase(st.orders, st.uow, buildAuthorizer(cfg, client), hub, m)
	marketplaceUsecase := usecases.NewMarketplaceUsecase(st.ads, st.profiles)
	kycUsecase := usecases.NewKYCUsecase(client)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var kycSource usecases.KYCSnapshotSource
	var kycPoller *jobs.Poller[[]backend.Record]
	if client.Configured() && cfg.Backend.ServiceToken != "" {
		kycPoller = jobs.NewPoller("kyc", cfg.Jobs.KYCPollInterval, func(ctx context.Context) ([]backend.Record, error) {
			return client.FetchCollection(ctx, usecases.PathAdminKYC, cfg.Backend.ServiceToken)
		}, m.ObserveKYCPoll)
		kycSource = kycPoller
		go kycPoller.Start(jobCtx)
	}
	adminUsecase := usecases.NewAdminUsecase(client, kycSource, 2*cfg.Jobs.KYCPollInterval)

	expiryJob := jobs.NewOrderExpiryJob(orderUsecase, cfg.Jobs.OrderExpiryInterval)
	go expiryJob.Start(jobCtx)

	proxyHandler := handlers.NewProxyHandler(client, kycUsecase)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware(m))

	applyCORSMiddleware(r, cfg.Server.AllowedOrigins)
	registerHealthRoute(r)
	registerMetricsRoute(r, m)
	registerP2PRoutes(r, routeDeps{
		catalogHandler:     handlers.NewCatalogHandler(catalog),
		marketplaceHandler: handlers.NewMarketplaceHandler(marketplaceUsecase),
		adHandler:          handlers.NewAdHandler(adUsecase),
		orderHandler:       handlers.NewOrderHandler(orderUsecase),
		releaseHandler:     handlers.NewReleaseHandler(releaseUsecase),
		streamHandler:      handlers.NewStreamHandler(orderUsecase, hub, originChecker(cfg.Server.AllowedOrigins)),
		authMiddleware:     middleware.AuthMiddleware(jwtService),
	})
	registerProxyRoutes(r, proxyHandler, handlers.NewAdminHandler(adminUsecase, proxyHandler))

	for _, route := range r.Routes() {
		logger.Debug(ctx, "route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-stopSignal()
		logger.Info(ctx, "Shutting down server")
		expiryJob.Stop()
		if kycPoller != nil {
			kycPoller.Stop()
		}
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownGrace)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info(ctx, "P2P backend starting",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("release_mode", cfg.Release.Mode),
	)
	if err := runServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
