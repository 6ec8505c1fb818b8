package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/woozymasta/zonemap/internal/geo"
	"github.com/woozymasta/zonemap/internal/logger"
	"github.com/woozymasta/zonemap/internal/metrics"
	"github.com/woozymasta/zonemap/internal/pipeline"
	"github.com/woozymasta/zonemap/internal/processor"
	"github.com/woozymasta/zonemap/internal/projection"
	"github.com/woozymasta/zonemap/internal/source"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input            string  `short:"i" long:"in"                env:"INPUT_FILE"       description:"Entities file (JSON or YAML). Reads from stdin if empty"`
	Output           string  `short:"o" long:"out"               env:"OUTPUT_FILE"      description:"Output file path. Writes to stdout if empty"`
	Format           string  `short:"f" long:"format"            env:"OUTPUT_FORMAT"    description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Country          string  `short:"c" long:"country"           env:"COUNTRY"          description:"Country code of the batch, overrides the file's country"`
	FallbackCountry  string  `long:"fallback-country"            env:"FALLBACK_COUNTRY" description:"Projection used when the country is unknown"`
	Projections      string  `short:"p" long:"projections"       env:"PROJECTIONS_FILE" description:"YAML file with extra or overriding projection parameters"`
	CentroidProperty string  `long:"centroid-property"           env:"CENTROID_PROPERTY" description:"Store feature centroids under this property"`
	MetricsFile      string  `long:"metrics-file"                env:"METRICS_FILE"     description:"Write Prometheus metrics to this textfile"`
	Tolerance        float64 `short:"t" long:"tolerance"         env:"TOLERANCE"        description:"Simplification tolerance in degrees" default:"0.0001"`
	Workers          int     `short:"w" long:"workers"           env:"WORKERS"          description:"Conversion workers, 0 uses all CPUs"`
	Minify           bool    `short:"m" long:"minify"            description:"Minify JSON output"`
	OpenRings        bool    `long:"open-rings"                  description:"Do not repeat the first polygon vertex at the end"`
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

	if opts.Minify && opts.Format == processor.FormatYAML {
		log.Fatal().Msg("--minify is only supported for json output")
	}

	registry, err := loadRegistry(opts.Projections)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load projections")
	}

	// Read Input
	var doc source.Document
	if opts.Input != "" {
		doc, err = source.LoadFile(opts.Input)
	} else {
		doc, err = source.Decode(os.Stdin)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read entities")
	}

	entities := doc.Entities()

	country := opts.Country
	if country == "" {
		country = doc.Country
	}
	if country == "" {
		log.Fatal().Msg("No country given, use --country or set country in the input file")
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	p := pipeline.New(registry, pipeline.Options{
		FallbackCountry: opts.FallbackCountry,
		Recorder:        collector,
		Tolerance:       opts.Tolerance,
		Workers:         opts.Workers,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := p.Run(ctx, pipeline.Batch{Country: strings.ToUpper(country), Entities: entities})
	if err != nil {
		log.Fatal().Err(err).Str("country", country).Msg("Conversion failed")
	}
	if res.FellBack {
		log.Warn().Str("country", country).Str("projection", res.Projection).Msg("Unknown country, used fallback projection")
	}

	fc := geo.Encode(res.Features, geo.EncodeOptions{
		CloseRings:       !opts.OpenRings,
		CentroidProperty: opts.CentroidProperty,
	})

	outputData, err := processor.Marshal(fc, opts.Format, opts.Minify)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal output")
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, outputData, 0644); err != nil {
			log.Fatal().Err(err).Msg("Failed to write output file")
		}
	} else {
		fmt.Println(string(outputData))
	}

	if opts.MetricsFile != "" {
		if err := collector.WriteTextfile(opts.MetricsFile); err != nil {
			log.Error().Err(err).Msg("Failed to write metrics")
		}
	}

	log.Info().
		Str("country", country).
		Int("entities", res.Stats.Total).
		Int("features", res.Stats.Features).
		Int("filtered", res.Stats.Filtered).
		Int("out_of_domain", res.Stats.OutOfDomain).
		Int("invalid", res.Stats.Invalid).
		Int("outside_envelope", res.Stats.OutsideEnvelope).
		Msg("Conversion finished")
}

// loadRegistry extends the built-in projections with a YAML list of
// parameter sets.
func loadRegistry(path string) (*projection.Registry, error) {
	if path == "" {
		return projection.Builtin(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var params []projection.Parameters
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, err
	}

	return projection.Builtin().With(params...)
}
