package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/carepoints/api"
	"github.com/warp/carepoints/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	loc, err := cfg.LoadLocation()
	if err != nil {
		return err
	}

	st, err := openStore(cfg.Storage, log)
	if err != nil {
		log.Error("open store", zap.Error(err))
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	sess, err := session.Open(cmd.Context(), session.Options{
		Store:    st,
		Location: loc,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	if p, ok := st.(api.Pruner); ok {
		scheduler := api.NewPruneScheduler(p, cfg.Storage.HistoryKeep, log)
		scheduler.CheckInterval = cfg.Storage.PruneInterval
		scheduler.Start()
		defer scheduler.Stop()
	}

	hub := api.NewHub(log)
	handler := api.NewHandler(sess, hub, log)
	defer handler.Close()

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      api.NewRouter(handler, cfg.HTTP.CORSOrigins),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("location", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errc:
		log.Error("server failed", zap.Error(err))
		sess.Close()
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("server forced to shutdown", zap.Error(err))
	}
	if err := sess.Flush(ctx); err != nil {
		log.Warn("flush pending writes", zap.Error(err))
	}
	sess.Close()

	log.Info("server stopped")
	return nil
}
