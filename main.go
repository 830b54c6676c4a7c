package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/billbatista/splitledger/api"
	"github.com/billbatista/splitledger/config"
	"github.com/billbatista/splitledger/eventlogger"
	"github.com/billbatista/splitledger/group"
	"github.com/billbatista/splitledger/ledger"
	"github.com/billbatista/splitledger/session"
	"github.com/billbatista/splitledger/user"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		printErrorAndExit("loading config", err)
	}

	slog.SetDefault(cfg.NewLogger(os.Stdout))

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	defer db.Close()

	err = db.Ping()
	if err != nil {
		printErrorAndExit("pinging database", err)
	}

	worker := eventlogger.NewWorker(eventlogger.NewSQLStore(db), cfg.EventBufferSize)
	worker.Start()
	defer worker.Shutdown()

	userRepo := user.NewRepository(db)
	groupRepo := group.NewRepository(db)
	sessionRepo := session.NewRepository(db)

	ledgerService := ledger.NewService(
		ledger.NewRepository(db),
		ledger.WithIdentityResolver(userRepo),
		ledger.WithMembershipPolicy(groupRepo),
		ledger.WithMaxAttempts(cfg.LedgerMaxAttempts),
		ledger.WithRetryInterval(cfg.LedgerRetryInterval),
	)

	server := api.NewServer(ledgerService, userRepo, groupRepo, sessionRepo, worker)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Mount("/", server.Routes())

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
