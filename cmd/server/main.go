package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"entitylog/internal/audit/store/memory"
	auditpg "entitylog/internal/audit/store/postgres"
	"entitylog/internal/platform/config"
	"entitylog/internal/platform/httpserver"
	"entitylog/internal/platform/logger"
	httptransport "entitylog/internal/transport/http"
)

// main serves the audit log's read API. Writing entries is the embedding
// application's job: it wires a session and the audit service into its own
// flush path. This binary only exposes what has been recorded.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var store httptransport.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := auditpg.New(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = pg.EnsureSchema(ctx)
		cancel()
		if err != nil {
			log.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		store = pg
	} else {
		log.Warn("no database configured, serving in-memory audit store")
		store = memory.NewInMemoryStore()
	}

	handler := httptransport.NewHandler(store, log)
	router := httptransport.NewRouter(handler)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting audit read API", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
