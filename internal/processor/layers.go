// Package processor converts configured layers into GeoJSON files.
package processor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/zonemap/internal/config"
	"github.com/woozymasta/zonemap/internal/geo"
	"github.com/woozymasta/zonemap/internal/pipeline"
	"github.com/woozymasta/zonemap/internal/source"
)

// Querier loads entities from a database. *source.Postgres implements it.
type Querier interface {
	Load(ctx context.Context, q source.Queries) ([]pipeline.Entity, error)
}

// ProcessLayer reads a layer, converts it through the dispatcher and writes
// its output file. An existing output is kept unless force is set; the
// result is nil in that case.
func ProcessLayer(
	ctx context.Context,
	d *pipeline.Dispatcher,
	cfg *config.Config,
	layer config.Layer,
	db Querier,
	force bool,
) (*pipeline.Result, error) {
	destFile := cfg.LayerOutput(layer)

	// Check if file exists
	if _, err := os.Stat(destFile); err == nil {
		if !force {
			log.Debug().Str("layer", layer.Name).Str("path", destFile).Msg("Layer output exists, skipping")
			return nil, nil
		}
	}

	entities, err := loadEntities(ctx, layer, db)
	if err != nil {
		return nil, errors.Wrapf(err, "layer %s", layer.Name)
	}

	log.Info().
		Str("layer", layer.Name).
		Str("country", cfg.LayerCountry(layer)).
		Int("entities", len(entities)).
		Msg("Converting layer")

	tolerance := cfg.LayerTolerance(layer)
	outcome := <-d.Submit(ctx, layer.Name, pipeline.Batch{
		Country:   cfg.LayerCountry(layer),
		Entities:  entities,
		Tolerance: &tolerance,
	})
	if outcome.Err != nil {
		return nil, errors.Wrapf(outcome.Err, "layer %s", layer.Name)
	}

	data, err := Marshal(geo.Encode(outcome.Result.Features, cfg.EncodeOptions()), layer.Format, layer.Minify)
	if err != nil {
		return nil, errors.Wrapf(err, "layer %s", layer.Name)
	}

	if err := saveFile(filepath.Dir(destFile), destFile, data); err != nil {
		return nil, errors.Wrapf(err, "layer %s", layer.Name)
	}

	return outcome.Result, nil
}

func loadEntities(ctx context.Context, layer config.Layer, db Querier) ([]pipeline.Entity, error) {
	if layer.File != "" {
		doc, err := source.LoadFile(layer.File)
		if err != nil {
			return nil, err
		}
		return doc.Entities(), nil
	}

	if db == nil {
		return nil, errors.New("no database connection")
	}
	return db.Load(ctx, source.Queries{
		Entities: layer.EntitiesQuery,
		Vertices: layer.VerticesQuery,
		Args:     layer.QueryArgs,
	})
}

// saveFile writes data to path, creating dir first.
func saveFile(dir, path string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	_, err = f.Write(data)
	return err
}
