package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/swipehq/interview-backend/internal/archive"
	"github.com/swipehq/interview-backend/internal/bus"
	"github.com/swipehq/interview-backend/internal/config"
	"github.com/swipehq/interview-backend/internal/database"
	"github.com/swipehq/interview-backend/internal/handler"
	"github.com/swipehq/interview-backend/internal/interview"
	"github.com/swipehq/interview-backend/internal/logger"
	"github.com/swipehq/interview-backend/internal/model"
	"github.com/swipehq/interview-backend/internal/provider"
	"github.com/swipehq/interview-backend/internal/repository"
	"github.com/swipehq/interview-backend/internal/router"
	"github.com/swipehq/interview-backend/internal/service"
	"github.com/swipehq/interview-backend/internal/session"
	"github.com/swipehq/interview-backend/internal/snapshot"
	"github.com/swipehq/interview-backend/internal/store"
	"github.com/swipehq/interview-backend/internal/validator"
	"github.com/swipehq/interview-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Swipe Interview Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Broadcast Bus ──────────────────────────────────────
	kv := store.NewRedisKV(rdb)
	var b bus.Bus
	if cfg.BusBackend == "store" {
		b = bus.NewStoreBus(kv, time.Second, log)
	} else {
		b = bus.NewRedisBus(rdb, log)
	}
	defer b.Close()

	// ─── Initialize Session Machine & Snapshot Saver ───────────────────
	machine := session.New(log)
	saver := snapshot.NewSaver(kv, machine, cfg.SnapshotInterval, log)

	// ─── Initialize Question Provider ──────────────────────────────────
	var prov provider.Provider
	if gemini, err := provider.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log); err != nil {
		// Run without a provider: default questions still work, generation
		// endpoints will report the provider as unavailable.
		log.Warn().Err(err).Msg("Gemini provider unavailable")
	} else {
		prov = gemini
		defer gemini.Close()
	}

	plan := make([]model.Difficulty, 0, len(cfg.DifficultyPlan))
	for _, d := range cfg.DifficultyPlan {
		plan = append(plan, model.NormalizeDifficulty(d))
	}

	runner := interview.NewRunner(machine, prov, saver, b, plan, log)

	// ─── Restore Interrupted Session ───────────────────────────────────
	// A crashed or restarted process picks up the last saved snapshot so
	// a candidate mid-interview does not lose their progress.
	if restored, err := runner.RestoreFromSaved(ctx); err != nil {
		log.Warn().Err(err).Msg("Snapshot restore failed")
	} else if restored {
		log.Info().Msg("Restored in-progress session from snapshot")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	candidateRepo := repository.NewCandidateRepository(pool)
	snapshotRepo := repository.NewSnapshotRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	archiveService := archive.NewService(machine, archive.NewRedisQueue(rdb), log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Candidate: handler.NewCandidateHandler(machine),
		Interview: handler.NewInterviewHandler(runner, machine, saver),
		Dashboard: handler.NewDashboardHandler(machine, snapshotRepo),
		WS:        handler.NewWSHandler(b, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	archiveWorker := worker.NewArchiveWorker(snapshotRepo, candidateRepo, rdb, log)

	go saver.Run(workerCtx)
	go runner.Run(workerCtx)
	go archiveWorker.Start(workerCtx)
	go func() {
		if err := archiveService.Run(workerCtx, b); err != nil {
			log.Error().Err(err).Msg("Archive consumer stopped")
		}
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Flush the current session so an interrupted interview survives
	//    the restart.
	runner.Shutdown(shutdownCtx)

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
