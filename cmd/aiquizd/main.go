package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/aiquiz/internal/api/http"
	"github.com/mind-engage/aiquiz/internal/auth"
	authmw "github.com/mind-engage/aiquiz/internal/auth/middleware"
	"github.com/mind-engage/aiquiz/internal/auth/revocation"
	"github.com/mind-engage/aiquiz/internal/config"
	"github.com/mind-engage/aiquiz/internal/db"
	"github.com/mind-engage/aiquiz/internal/files"
	"github.com/mind-engage/aiquiz/internal/grading"
	"github.com/mind-engage/aiquiz/internal/logger"
	"github.com/mind-engage/aiquiz/internal/observability"
	"github.com/mind-engage/aiquiz/internal/quiz"
	"github.com/mind-engage/aiquiz/internal/storage"
	"github.com/mind-engage/aiquiz/internal/users"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Init(ctx, lg, observability.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "aiquiz",
		Environment: string(cfg.Mode),
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		Headers:     observability.ParseHeaders(cfg.OTelHeaders),
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		lg.Warn("tracing disabled", "error", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// --- DB ---
	octx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(octx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		lg.Fatal("db open failed", "error", err)
	}
	defer dbh.Close()

	// --- Auth ---
	revoker, closeRevoker := openRevoker(ctx, cfg, dbh, lg)
	defer closeRevoker()

	userStore := users.NewSQLStore(dbh)
	mgr := auth.NewManager(
		userStore,
		auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashConcurrency),
		auth.NewTokenCodec(cfg.AuthSecret, nil),
		revoker,
		lg,
		auth.Options{
			AccessTTL:      cfg.AccessTokenTTL,
			RefreshTTLDays: cfg.RefreshTTLDays,
			MinPasswordLen: cfg.MinPasswordLen,
		},
	)

	// --- Blobs ---
	blobs, closeBlobs := openBlobs(ctx, cfg, lg)
	defer closeBlobs()

	quizStore := quiz.NewSQLStore(dbh)
	handler := api.NewRouter(api.Deps{
		DB:       dbh,
		Log:      lg,
		Auth:     mgr,
		Users:    users.NewService(userStore),
		Quizzes:  quiz.NewService(quizStore, nil, lg),
		Grader:   grading.NewEngine(quizStore, nil, lg),
		Files:    files.NewService(dbh, blobs, nil, lg),
		Cookies:  authmw.CookieOptions{Secure: cfg.CookieSecure},
		Origins:  cfg.CORSOrigins,
		MaxBytes: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			lg.Warn("shutdown", "error", err)
		}
	}()

	lg.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver,
		"blobs", cfg.BlobDriver, "revocation", cfg.RevocationDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("server stopped", "error", err)
	}
	lg.Info("server stopped")
}

func openRevoker(ctx context.Context, cfg config.Config, dbh *sql.DB, lg *logger.Logger) (auth.Revoker, func()) {
	switch cfg.RevocationDriver {
	case "redis":
		r, err := revocation.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			lg.Fatal("redis revocation", "error", err)
		}
		return r, func() { _ = r.Close() }
	case "memory":
		// single instance only; revocations are lost on restart
		return revocation.NewMemory(0, nil), func() {}
	}
	s := revocation.NewSQL(dbh, nil)
	go purgeLoop(ctx, s, lg)
	return s, func() {}
}

// purgeLoop sweeps revocation rows whose tokens have expired anyway.
func purgeLoop(ctx context.Context, s *revocation.SQL, lg *logger.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Purge(ctx)
			if err != nil {
				lg.Warn("revocation purge failed", "error", err)
				continue
			}
			if n > 0 {
				lg.Debug("revocations purged", "rows", n)
			}
		}
	}
}

func openBlobs(ctx context.Context, cfg config.Config, lg *logger.Logger) (storage.BlobStore, func()) {
	if cfg.BlobDriver == "gcs" {
		g, err := storage.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			lg.Fatal("gcs blob store", "error", err)
		}
		return g, func() { _ = g.Close() }
	}
	fs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		lg.Fatal("blob store", "error", err)
	}
	return fs, func() {}
}
