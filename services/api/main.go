package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abp0107/whatsapp-clone/internal/config"
	"github.com/abp0107/whatsapp-clone/internal/firestore"
	"github.com/abp0107/whatsapp-clone/internal/handler"
	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/memstore"
	"github.com/abp0107/whatsapp-clone/internal/middleware"
	"github.com/abp0107/whatsapp-clone/internal/push"
	"github.com/abp0107/whatsapp-clone/internal/repository"
	"github.com/abp0107/whatsapp-clone/internal/service"
	"github.com/abp0107/whatsapp-clone/internal/startup"
	"github.com/abp0107/whatsapp-clone/internal/storage"
	"github.com/abp0107/whatsapp-clone/internal/storage/memory"
	"github.com/abp0107/whatsapp-clone/internal/ws"
)

// backend — выбранное хранилище и то, что нужно закрыть при остановке.
type backend struct {
	store  service.Store
	seeder seeder
	close  func()
}

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "apply database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
	seed := flag.Bool("seed", false, "create demo profiles u1, u2, u3")
	flag.Parse()

	logger.Info("starting API service")
	cfg := config.Load()
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	if *dev {
		cfg.StoreBackend = config.BackendPostgres
		db, err := startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			logger.Flush()
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := db.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	be := openBackend(cfg, *migrate && !*dev)
	if be == nil {
		return
	}
	defer be.close()

	if *seed || *dev || cfg.StoreBackend == config.BackendMemory {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := seedDemo(ctx, be.seeder); err != nil {
			logger.Errorf("seed: %v", err)
		}
		cancel()
	}

	var broker storage.Broker
	if cfg.RedisURL != "" {
		rc := startup.ConnectRedisWithRetry(cfg.RedisURL, 60*time.Second, "")
		rc.SetSendRateMax(cfg.SendRateLimit)
		broker = rc
		logger.Info("redis connected")
	} else {
		logger.Info("REDIS_URL not set, using in-process broker (single instance only)")
		broker = memory.New(cfg.SendRateLimit, time.Minute)
	}
	defer broker.Close()

	pushClient := push.NewClient(cfg.PushServiceURL)
	var notifier service.Notifier
	if pushClient.Enabled() {
		notifier = pushClient
	}
	chat := service.NewChatService(be.store, broker, notifier)
	profiles := service.NewProfileService(be.store, cfg.MaxPhotoBytes)
	feed := service.NewFeed(be.store, broker)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(chat, feed, ws.Options{
		MaxConnections: cfg.MaxWSConnections,
		SendBufferSize: cfg.WSSendBufferSize,
		MaxMessageSize: int64(cfg.WSMaxMessageSize),
	})
	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	auth := middleware.HeaderIdentity
	if cfg.AuthServiceURL != "" {
		auth = middleware.AuthServiceValidate(middleware.NewAuthClient(cfg.AuthServiceURL))
	} else {
		logger.Warnf("AUTH_SERVICE_URL not set: trusting X-User-Id header (development only)")
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(middleware.RecoverJSON)
	// Не сжимать WebSocket — иначе ResponseWriter не реализует http.Hijacker и upgrade даёт 500.
	r.Use(func(next http.Handler) http.Handler {
		compressed := chimw.Compress(5)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			compressed.ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSAllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-Id", "X-Session-Id", "X-Timestamp", "X-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handler.Mount(r, handler.Handlers{
		Profile: handler.NewProfileHandler(profiles, cfg.MaxPhotoBytes),
		Chat:    handler.NewChatHandler(chat),
		WS:      handler.NewWSHandler(hub, cfg.CORSAllowedOrigins),
		Config:  handler.NewConfigHandler(cfg),
		Push:    handler.NewPushHandler(pushClient),
	}, auth)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("server listening on %s (store=%s)", cfg.ServerAddr, cfg.StoreBackend)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	logger.Flush()
}

// openBackend подключает хранилище по STORE_BACKEND. migrateOnly — применить миграции и вернуть nil.
func openBackend(cfg *config.Config, migrateOnly bool) *backend {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		s := memstore.New()
		logger.Warnf("STORE_BACKEND=memory: data is lost on restart")
		return &backend{store: s, seeder: s, close: func() {}}

	case config.BackendFirestore:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		client, err := startup.ConnectFirestore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			logger.Errorf("%v", err)
			logger.Flush()
			os.Exit(1)
		}
		logger.Infof("firestore project %s", cfg.Firestore.ProjectID)
		s := firestore.NewStore(client)
		return &backend{store: s, seeder: s, close: func() { _ = client.Close() }}

	default:
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			logger.Errorf("parse db config: %v", err)
			logger.Flush()
			os.Exit(1)
		}
		poolCfg.MaxConns = int32(cfg.DBMaxConnections())
		poolCfg.MinConns = 2
		pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := startup.ApplyMigrations(ctx, pool); err != nil {
			pool.Close()
			logger.Errorf("migrations: %v", err)
			logger.Flush()
			os.Exit(1)
		}
		logger.Info("database connected, migrations applied")
		if migrateOnly {
			pool.Close()
			return nil
		}
		s := repository.NewStore(pool)
		return &backend{store: s, seeder: s, close: pool.Close}
	}
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "chat"
		password = "chat_secret"
		database = "chat"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
