package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"studiogear/internal/admin"
	"studiogear/internal/api"
	"studiogear/internal/catalog"
	"studiogear/internal/config"
	"studiogear/internal/db"
	"studiogear/internal/describe"
	"studiogear/internal/imagesearch"
	"studiogear/internal/logger"
	"studiogear/internal/quota"
	"studiogear/internal/storage"

	"github.com/gin-gonic/gin"
)

// app holds the services shared by every command.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	db        db.Service
	counter   *quota.Service
	images    *storage.ImageStore
	describer describe.Describer
	gemini    *describe.GeminiDescriber
	// fetcher is nil when image search is not configured.
	fetcher *imagesearch.Fetcher
}

// logTo builds loggers that write to w instead of stdout.
func logTo(w io.Writer) func(debug bool) *slog.Logger {
	return func(debug bool) *slog.Logger {
		return logger.NewWithWriter(w, debug)
	}
}

func newApp(ctx context.Context, configPath string, newLogger func(debug bool) *slog.Logger) (*app, error) {
	cfg, warning, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	log := newLogger(cfg.Debug)
	if warning != "" {
		log.Warn(warning)
	}

	database, err := db.NewService(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	log.Debug("Database initialized", "type", cfg.Database.Type)

	a := &app{
		cfg:       cfg,
		log:       log,
		db:        database,
		counter:   quota.NewService(database, cfg.Quota.DailyLimit, quota.WithLocation(cfg.Quota.Location())),
		describer: describe.TemplateDescriber{},
	}

	driver, err := storage.NewStorageFromConfig(ctx, cfg.Storage, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}
	a.images = storage.NewImageStore(driver, log)

	if cfg.ImageSearch.APIKey != "" && cfg.ImageSearch.EngineID != "" {
		client, err := imagesearch.NewCustomSearchClient(ctx, imagesearch.ClientConfig{
			APIKey:   cfg.ImageSearch.APIKey,
			EngineID: cfg.ImageSearch.EngineID,
			Endpoint: cfg.ImageSearch.Endpoint,
			Timeout:  cfg.ImageSearch.TimeoutDuration(),
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("error creating image search client: %w", err)
		}
		a.fetcher = imagesearch.NewFetcher(client, a.counter, database, imagesearch.FetcherConfig{
			ResultsPerItem: cfg.ImageSearch.ResultsPerItem,
			BatchCap:       cfg.Quota.BatchCap,
			CallDelay:      cfg.Quota.CallDelayDuration(),
		}, log)
	} else {
		log.Warn("Image search is not configured; image fetching is disabled")
	}

	if cfg.Generation.APIKey != "" {
		gemini, err := describe.NewGeminiDescriber(ctx, cfg.Generation.APIKey, cfg.Generation.Model)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("error creating description generator: %w", err)
		}
		a.gemini = gemini
		a.describer = describe.Fallback{Primary: gemini, Secondary: describe.TemplateDescriber{}}
	}
	return a, nil
}

// imageFetcher returns the fetcher as an interface, nil when unset.
func (a *app) imageFetcher() admin.ImageFetcher {
	if a.fetcher == nil {
		return nil
	}
	return a.fetcher
}

func (a *app) close() {
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			a.log.Warn("Error closing generation client", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("Error closing database", "error", err)
	}
}

// customRecovery is a middleware that recovers from panics and handles http.ErrAbortHandler gracefully.
func customRecovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				if recovered == http.ErrAbortHandler {
					log.Warn("Client connection aborted", "path", c.Request.URL.Path)
					c.Abort()
					return
				}

				log.Error("Panic recovered",
					"error", recovered,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// newRouter wires the public and admin APIs. queue may be nil.
func (a *app) newRouter(queue *catalog.ImageQueue) *gin.Engine {
	if !a.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(customRecovery(a.log))
	if a.cfg.Debug {
		router.Use(logger.GinMiddleware(a.log))
	}

	var enqueuer catalog.Enqueuer
	if queue != nil {
		enqueuer = queue
	}
	importer := catalog.NewImporter(a.db, a.describer, enqueuer, a.log)

	api.SetupRoutes(router, api.NewHandler(a.db, a.images, a.log))
	admin.SetupRoutes(router, admin.NewHandler(a.db, importer, a.imageFetcher(), a.counter, a.images, a.log), a.cfg.Admin)
	return router
}
