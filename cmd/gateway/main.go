package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	api "github.com/mind-engage/classroom-gateway/internal/api/http"
	auth "github.com/mind-engage/classroom-gateway/internal/auth/middleware"
	"github.com/mind-engage/classroom-gateway/internal/cache"
	"github.com/mind-engage/classroom-gateway/internal/classroom"
	"github.com/mind-engage/classroom-gateway/internal/config"
	"github.com/mind-engage/classroom-gateway/internal/db"
	"github.com/mind-engage/classroom-gateway/internal/exam"
	"github.com/mind-engage/classroom-gateway/internal/logging"
	"github.com/mind-engage/classroom-gateway/internal/metrics"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	migrateOnly := flag.Bool("migrate-only", false, "apply the schema and exit")
	testsFile := flag.String("load-tests", "", "JSON array of test definitions to store before serving")
	flag.Parse()

	if err := run(*envFile, *migrateOnly, *testsFile); err != nil {
		fmt.Fprintln(os.Stderr, "gateway:", err)
		os.Exit(1)
	}
}

func run(envFile string, migrateOnly bool, testsFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()
	if migrateOnly {
		log.Info("schema applied", zap.String("driver", cfg.DBDriver))
		return nil
	}

	users := auth.NewUsers(dbh)
	if cfg.AdminPassHash != "" {
		admin := auth.User{ID: "admin", Username: cfg.AdminUser, Role: "admin"}
		if err := users.Upsert(context.Background(), admin, cfg.AdminPassHash); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	// --- Question cache (optional) ---
	ready := map[string]api.Pinger{"db": dbh}
	var qcache *cache.Questions
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		qcache = cache.NewQuestions(rdb, cfg.QuestionCacheTTL, log.Named("cache"))
		ready["redis"] = api.PingFunc(qcache.Ping)
	}

	svc := exam.NewService(
		exam.NewSQLStore(dbh),
		classroom.NewSQLDirectory(dbh),
		exam.WithLogger(log.Named("exam")),
		exam.WithQuestionCache(qcache),
	)
	if testsFile != "" {
		if err := loadTests(context.Background(), svc, testsFile); err != nil {
			return err
		}
	}

	h := api.NewRouter(api.Deps{
		Auth:           auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL),
		Users:          users,
		RoleDB:         dbh,
		Service:        svc,
		Grid:           cfg.Grid,
		Log:            log,
		CORSOrigins:    cfg.CORSOrigins,
		AllowClaimRole: cfg.Mode == config.ModeOffline,
		Metrics:        metrics.Handler(metrics.NewRegistry()),
		Ready:          ready,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("db", cfg.DBDriver),
			zap.Bool("question_cache", qcache != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		log.Info("shutting down", zap.String("signal", s.String()))
	}

	sctx, scancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func loadTests(ctx context.Context, svc *exam.Service, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load tests: %w", err)
	}
	var tests []exam.Test
	if err := json.Unmarshal(raw, &tests); err != nil {
		return fmt.Errorf("load tests %s: %w", path, err)
	}
	for _, t := range tests {
		if err := svc.PutTest(ctx, t); err != nil {
			return fmt.Errorf("load test %s: %w", t.ID, err)
		}
	}
	return nil
}
