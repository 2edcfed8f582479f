package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk/internal/blobstore"
	"github.com/helpdesk/internal/config"
	"github.com/helpdesk/internal/handler"
	"github.com/helpdesk/internal/logger"
	"github.com/helpdesk/internal/middleware"
	"github.com/helpdesk/internal/repository"
	"github.com/helpdesk/internal/service"
	"github.com/helpdesk/internal/startup"
	"github.com/helpdesk/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
	flag.Parse()

	logger.Info("starting helpdesk API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}
	logger.Info("database connected, migrations applied")

	tokens := startup.OpenTokenStore(cfg.Redis.URL, *dev)
	defer tokens.Close()

	chatRepo := repository.NewChatRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	schedRepo := repository.NewScheduleRepository(pool)
	blobs := blobstore.New(cfg.UploadDir)

	schedSvc := service.NewScheduleService(schedRepo, cfg.Location())
	chatSvc := service.NewChatService(chatRepo, msgRepo, blobs, schedSvc, tokens, cfg.Attachment)
	authSvc := service.NewAuthService(staffRepo, tokens)

	chatH := handler.NewChatHandler(chatSvc)
	schedH := handler.NewScheduleHandler(schedSvc)
	authH := handler.NewAuthHandler(authSvc)
	fileH := handler.NewFileHandler(chatSvc)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	r.Use(chimw.Compress(5))
	r.Use(middleware.RequestLog)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/api/availability", schedH.Availability)
	r.Post("/api/staff/login", authH.Login)

	// Student surface: anonymous, keyed by the helpdesk_token cookie.
	r.Group(func(r chi.Router) {
		r.Use(middleware.StudentToken)
		r.Post("/api/chats", chatH.StartChat)
		r.Get("/api/chats/{id}", chatH.GetChat)
		r.Get("/api/chats/{id}/messages", chatH.ListMessages)
		r.Post("/api/chats/{id}/messages", chatH.PostMessage)
		r.Post("/api/chats/{id}/leave", chatH.Leave)
		r.Get("/api/attachments/{id}", fileH.StudentDownload)
	})

	// Staff surface: Bearer token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.StaffAuth(authSvc))
		r.Post("/api/staff/logout", authH.Logout)
		r.Get("/api/chats/waiting", chatH.Waiting)
		r.Get("/api/chats/mine", chatH.Mine)
		r.Get("/api/stats", chatH.Stats)
		r.Post("/api/chats/{id}/join", chatH.Join)
		r.Post("/api/chats/{id}/close", chatH.Close)
		r.Get("/api/staff/chats/{id}/messages", chatH.StaffListMessages)
		r.Post("/api/staff/chats/{id}/messages", chatH.StaffPostMessage)
		r.Get("/api/staff/attachments/{id}", fileH.Download)

		// Schedule management: system managers only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManager)
			r.Get("/api/schedule/weekly", schedH.GetWeekly)
			r.Put("/api/schedule/weekly", schedH.UpdateWeekly)
			r.Post("/api/schedule/preset", schedH.ApplyPreset)
			r.Get("/api/schedule/overrides", schedH.ListOverrides)
			r.Post("/api/schedule/overrides", schedH.CreateOverride)
			r.Get("/api/schedule/override", schedH.GetOverride)
			r.Delete("/api/schedule/overrides/{id}", schedH.DeleteOverride)
		})
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
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
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		logger.Errorf("list migrations: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
		logger.Infof("migration applied: %s", name)
	}
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "helpdesk"
		password = "helpdesk_secret"
		database = "helpdesk"
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
