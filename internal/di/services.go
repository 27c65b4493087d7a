package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/epoch-iith/qmashup/internal/config"
	"github.com/epoch-iith/qmashup/internal/modules/library"
	"github.com/epoch-iith/qmashup/internal/modules/mashup"
	"github.com/epoch-iith/qmashup/internal/modules/pathing"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// InitializeServices creates the engine components and the services.
// The S3 exporter is only built when an export bucket is configured.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.Engine = quantum.NewEngine(log)
	container.Extractor = pathing.NewExtractor(log)

	container.GraphService = library.NewService(container.GraphRepo, log)
	container.MashupService = mashup.NewService(
		container.GraphService,
		container.RunRepo,
		container.Engine,
		container.Extractor,
		cfg.Walk,
		cfg.Audio,
		log,
	)

	if cfg.Export.Enabled() {
		exporter, err := mashup.NewS3ExporterFromConfig(ctx, cfg.Export, log)
		if err != nil {
			return fmt.Errorf("failed to create exporter: %w", err)
		}
		container.Exporter = exporter
		container.MashupService.SetExporter(exporter)
		log.Info().Str("bucket", cfg.Export.Bucket).Msg("Run export enabled")
	}

	log.Info().Msg("Services initialized")
	return nil
}
