package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"studiogear/internal/catalog"
	"studiogear/internal/logger"
	"studiogear/internal/scheduler"

	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, configPath string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, configPath, logger.New)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log
	log.Info("Logger initialized", "debug_mode", a.cfg.Debug)

	var (
		queue *catalog.ImageQueue
		sched *scheduler.Scheduler
	)
	if a.fetcher != nil {
		queue = catalog.NewImageQueue(a.fetcher, a.cfg.Import.QueueSize, log, catalog.WithToday(a.counter.Today))
		defer queue.Close()

		sched = scheduler.NewScheduler(a.db, a.fetcher, a.cfg.Scheduler.ImageFetchSpec, a.cfg.Scheduler.ImageFetchLimit, log)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Port),
		Handler: a.newRouter(queue),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", "port", a.cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exiting")
	return nil
}
