// Package app wires configuration into a running face engine. It is shared by
// the HTTP server and the operator CLI so both use the same stores.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/config"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/database"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/face"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/gallery"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/media"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/notify"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/repository"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/service"
)

// Engine holds the wired services and the resources they own.
type Engine struct {
	Service *service.FaceService
	Gallery *gallery.Store
	Matcher *service.Matcher

	closers []func() error
}

// Options tweaks how Open builds the engine.
type Options struct {
	// SkipNotifier leaves MQTT unconnected even when a broker is configured.
	SkipNotifier bool
}

type repositories struct {
	faces  repository.FaceRepositoryInterface
	audits service.RecognitionAuditRepositoryInterface
}

// Open connects every backing store selected by cfg. On error, whatever was
// already opened is closed again.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (_ *Engine, err error) {
	e := &Engine{}
	defer func() {
		if err != nil {
			_ = e.Close()
		}
	}()

	repos, err := e.openRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	images, err := openImageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ext, err := face.NewExtractor(cfg)
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.MQTTBroker != "" && !opts.SkipNotifier {
		client, err := notify.Connect(notify.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			SiteID:   cfg.SiteID,
		}, logger)
		if err != nil {
			return nil, err
		}
		publisher := notify.NewPublisher(client, cfg.SiteID, logger)
		notifier = publisher
		e.closers = append(e.closers, func() error {
			publisher.Close()
			return nil
		})
	}

	e.Gallery = gallery.NewStore(repos.faces, images, cfg.EmbeddingDim, logger)
	e.Matcher = service.NewMatcher(e.Gallery, ext).
		WithThreshold(cfg.Threshold).
		WithTopK(cfg.TopK)
	enroller := service.NewEnroller(e.Gallery, ext, logger)
	e.Service = service.NewFaceService(e.Gallery, enroller, e.Matcher, repos.audits, notifier, logger)

	logger.Info("face engine ready",
		slog.String("database", cfg.DatabaseDriver),
		slog.String("image_store", cfg.ImageStore),
		slog.String("extractor", cfg.Extractor),
		slog.Int("embedding_dim", cfg.EmbeddingDim),
		slog.Float64("threshold", e.Matcher.Threshold()),
		slog.Int("top_k", e.Matcher.TopK()),
		slog.Bool("events", cfg.MQTTBroker != "" && !opts.SkipNotifier),
	)

	return e, nil
}

func (e *Engine) openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get underlying sql.DB: %w", err)
		}
		e.closers = append(e.closers, sqlDB.Close)

		return &repositories{
			faces:  repository.NewSQLiteFaceRepository(db),
			audits: repository.NewSQLiteRecognitionAuditRepository(db),
		}, nil

	case config.DriverPostgres:
		if cfg.MigrateOnStart {
			status, err := database.MigrateUp(ctx, cfg.DatabaseURL)
			if err != nil {
				return nil, err
			}
			logger.Info("database migrated", slog.Uint64("version", uint64(status.Version)))
		}

		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() error {
			pool.Close()
			return nil
		})

		return &repositories{
			faces:  repository.NewFaceRepository(pool),
			audits: repository.NewRecognitionAuditRepository(pool),
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

func openImageStore(ctx context.Context, cfg *config.Config) (media.Store, error) {
	switch cfg.ImageStore {
	case config.ImageStoreS3:
		return media.NewS3Store(ctx, media.S3Config{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.AWSRegion,
			Endpoint: cfg.S3Endpoint,
		})
	case config.ImageStoreLocal, "":
		return media.NewLocalStore(cfg.FacesDir)
	default:
		return nil, fmt.Errorf("unknown image store %q", cfg.ImageStore)
	}
}

// Close releases resources in reverse order of acquisition. The notifier is
// drained before the database goes away.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil
	return errors.Join(errs...)
}
