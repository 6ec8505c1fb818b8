package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/woozymasta/zonemap/internal/config"
	"github.com/woozymasta/zonemap/internal/logger"
	"github.com/woozymasta/zonemap/internal/metrics"
	"github.com/woozymasta/zonemap/internal/pipeline"
	"github.com/woozymasta/zonemap/internal/processor"
	"github.com/woozymasta/zonemap/internal/source"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string   `short:"c" long:"config"       env:"CONFIG_FILE"  description:"Path to configuration file" default:"config.yaml"`
	Limit       []string `short:"l" long:"limit"        env:"LIMIT_NAMES"  description:"Limit processing to specific layer names"`
	MetricsFile string   `short:"M" long:"metrics-file" env:"METRICS_FILE" description:"Write Prometheus metrics to this textfile"`
	Concurrency int      `short:"p" long:"concurrency"  env:"CONCURRENCY"  description:"Layers processed in parallel" default:"4"`
	Force       bool     `short:"f" long:"force"        description:"Force overwrite of existing files"`
}

func main() {
	_ = godotenv.Load(".env")

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	registry, err := cfg.Registry()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid projection parameters in configuration")
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	// Filter layers if limit is set
	layersToProcess := cfg.Layers
	if len(opts.Limit) > 0 {
		layersToProcess = make([]config.Layer, 0)
		availableLayers := make(map[string]config.Layer)
		for _, l := range cfg.Layers {
			availableLayers[l.Name] = l
		}

		seen := make(map[string]bool)

		for _, limitName := range opts.Limit {
			if seen[limitName] {
				continue
			}
			seen[limitName] = true

			if l, ok := availableLayers[limitName]; ok {
				layersToProcess = append(layersToProcess, l)
			} else {
				log.Error().
					Str("name", limitName).
					Msg("Layer specified in --limit not found in configuration")
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var db processor.Querier
	if needsDatabase(layersToProcess) {
		pg, err := source.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to postgres")
		}
		defer pg.Close()
		db = pg
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	pipelineOpts := cfg.PipelineOptions()
	pipelineOpts.Recorder = collector
	dispatcher := pipeline.NewDispatcher(pipeline.New(registry, pipelineOpts))

	log.Info().
		Int("layers_total", len(cfg.Layers)).
		Int("layers_queued", len(layersToProcess)).
		Bool("force", opts.Force).
		Msg("Starting loader")

	// layers fail independently, the group only bounds concurrency
	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(opts.Concurrency)

	for _, layer := range layersToProcess {
		layer := layer
		g.Go(func() error {
			res, err := processor.ProcessLayer(ctx, dispatcher, cfg, layer, db, opts.Force)
			if err != nil {
				failed.Add(1)
				log.Error().Err(err).Str("layer", layer.Name).Msg("Failed to process layer")
				return nil
			}
			if res == nil {
				return nil
			}

			log.Info().
				Str("layer", layer.Name).
				Str("projection", res.Projection).
				Int("features", res.Stats.Features).
				Int("filtered", res.Stats.Filtered).
				Int("out_of_domain", res.Stats.OutOfDomain).
				Int("invalid", res.Stats.Invalid).
				Msg("Layer written")
			return nil
		})
	}
	_ = g.Wait()

	if opts.MetricsFile != "" {
		if err := collector.WriteTextfile(opts.MetricsFile); err != nil {
			log.Error().Err(err).Msg("Failed to write metrics")
		}
	}

	if n := failed.Load(); n > 0 {
		log.Fatal().Int32("failed", n).Msg("Loader finished with errors")
	}

	log.Info().Msg("Loader finished successfully")
}

func needsDatabase(layers []config.Layer) bool {
	for _, l := range layers {
		if l.File == "" {
			return true
		}
	}
	return false
}
