package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"finstack-p2p.backend/internal/config"
	"finstack-p2p.backend/pkg/redis"
)

func withMainHooks(t *testing.T) {
	t.Helper()
	origLoadDotenv := loadDotenv
	origLoadCfg := loadCfg
	origInitLog := initLog
	origInitRedis := initRedis
	origOpenDB := openDB
	origRunServer := runServer
	origStopSignal := stopSignal

	loadDotenv = func(...string) error { return nil }
	stopSignal = func() <-chan os.Signal { return make(chan os.Signal) }

	t.Cleanup(func() {
		loadDotenv = origLoadDotenv
		loadCfg = origLoadCfg
		initLog = origInitLog
		initRedis = origInitRedis
		openDB = origOpenDB
		runServer = origRunServer
		stopSignal = origStopSignal
		redis.SetClient(nil)
	})
}

// withRedis points the config at a fresh miniredis
func withRedis(t *testing.T, cfg *config.Config) {
	t.Helper()
	srv := miniredis.RunT(t)
	cfg.Redis.URL = "redis://" + srv.Addr()
}

func baseTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "18080",
			Env:            "development",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Store: config.StoreConfig{Driver: "kv"},
		Database: config.DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			DBName:   "finstack_p2p",
			SSLMode:  "disable",
		},
		Redis: config.RedisConfig{
			URL: "redis://localhost:6379",
		},
		JWT: config.JWTConfig{
			Secret:       "secret",
			AccessExpiry: 15 * time.Minute,
		},
		Backend: config.BackendConfig{
			Timeout:   time.Second,
			RateLimit: 100,
			RateBurst: 100,
		},
		Release: config.ReleaseConfig{
			Mode:        "local",
			CodeTTL:     time.Minute,
			MaxAttempts: 3,
		},
		Jobs: config.JobsConfig{
			OrderExpiryInterval: time.Hour,
			KYCPollInterval:     time.Hour,
		},
	}
}

func memorySQLite(name string) func(config.DatabaseConfig) (*gorm.DB, error) {
	return func(config.DatabaseConfig) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())), &gorm.Config{})
	}
}

func TestRunMainProcess_RedisInitError(t *testing.T) {
	withMainHooks(t)
	loadCfg = baseTestConfig
	initRedis = func(string, string) error { return errors.New("redis down") }

	err := runMainProcess()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestRunMainProcess_CatalogError(t *testing.T) {
	withMainHooks(t)
	cfg := baseTestConfig()
	cfg.Catalog.File = t.TempDir() + "/missing.yaml"
	loadCfg = func() *config.Config { return cfg }
	initRedis = func(string, string) error { return nil }

	err := runMainProcess()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog")
}

func TestRunMainProcess_UnknownStoreDriver(t *testing.T) {
	withMainHooks(t)
	cfg := baseTestConfig()
	cfg.Store.Driver = "etcd"
	loadCfg = func() *config.Config { return cfg }
	initRedis = func(string, string) error { return nil }

	err := runMainProcess()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestRunMainProcess_DBOpenError(t *testing.T) {
	withMainHooks(t)
	cfg := baseTestConfig()
	cfg.Store.Driver = "sql"
	loadCfg = func() *config.Config { return cfg }
	initRedis = func(string, string) error { return nil }
	openDB = func(config.DatabaseConfig) (*gorm.DB, error) { return nil, errors.New("db open failed") }

	err := runMainProcess()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db open failed")
}

func TestRunMainProcess_SQLStore(t *testing.T) {
	withMainHooks(t)
	cfg := baseTestConfig()
	cfg.Store.Driver = "sql"
	withRedis(t, cfg)
	loadCfg = func() *config.Config { return cfg }
	openDB = memorySQLite("main_sql")
	runServer = func(srv *http.Server) error {
		assert.Equal(t, ":18080", srv.Addr)
		return nil
	}

	require.NoError(t, runMainProcess())
}

func TestRunMainProcess_ServerRunError(t *testing.T) {
	withMainHooks(t)
	cfg := baseTestConfig()
	withRedis(t, cfg)
	loadCfg = func() *config.Config { return cfg }
	runServer = func(*http.Server) error { return errors.New("listen failed") }

	err := runMainProcess()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen failed")
}

func TestRunMainProcess_ServesRoutes(t *testing.T) {
	withMainHooks(t)
	cfg := baseTestConfig()
	withRedis(t, cfg)
	loadCfg = func() *config.Config { return cfg }

	var health, metricsStatus, p2pStatus, proxyStatus int
	runServer = func(srv *http.Server) error {
		get := func(path string) int {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w.Code
		}
		health = get("/health")
		metricsStatus = get("/metrics")
		p2pStatus = get("/api/p2p/orders")
		proxyStatus = get("/api/fstack/profile")
		return nil
	}

	require.NoError(t, runMainProcess())
	assert.Equal(t, http.StatusOK, health)
	assert.Equal(t, http.StatusOK, metricsStatus)
	assert.Equal(t, http.StatusUnauthorized, p2pStatus)
	assert.Equal(t, http.StatusInternalServerError, proxyStatus, "no backend URL configured")
}

func TestRunMainProcess_StartsKYCPoller(t *testing.T) {
	withMainHooks(t)
	polled := make(chan string, 4)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case polled <- r.URL.Path + " " + r.Header.Get("Authorization"):
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	cfg := baseTestConfig()
	withRedis(t, cfg)
	cfg.Backend.BaseURL = upstream.URL
	cfg.Backend.ServiceToken = "svc-token"
	cfg.Release.Mode = "backend"
	loadCfg = func() *config.Config { return cfg }

	var got string
	runServer = func(*http.Server) error {
		select {
		case got = <-polled:
		case <-time.After(5 * time.Second):
		}
		return nil
	}

	require.NoError(t, runMainProcess())
	assert.Equal(t, "/admin/kyc Bearer svc-token", got)
}

func TestRunMainProcess_GracefulShutdown(t *testing.T) {
	withMainHooks(t)
	cfg := baseTestConfig()
	cfg.Server.Port = "0"
	withRedis(t, cfg)
	loadCfg = func() *config.Config { return cfg }
	stopSignal = func() <-chan os.Signal {
		ch := make(chan os.Signal, 1)
		ch <- syscall.SIGTERM
		return ch
	}
	runServer = func(srv *http.Server) error { return srv.ListenAndServe() }

	done := make(chan error, 1)
	go func() { done <- runMainProcess() }()

	select {
	case err := <-done:
		require.NoError(t, err, "ErrServerClosed is a clean exit")
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestOpenSQLDB_UnsupportedDriver(t *testing.T) {
	_, err := openSQLDB(config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestOpenSQLDB_SQLite(t *testing.T) {
	db, err := openSQLDB(config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir() + "/p2p.db"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
	_ = sqlDB.Close()
}
