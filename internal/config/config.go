// Package config handles configuration loading and shared data structures.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/zonemap/internal/geo"
	"github.com/woozymasta/zonemap/internal/pipeline"
	"github.com/woozymasta/zonemap/internal/projection"
)

// ErrInvalidConfig is returned when a configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the root configuration file structure.
type Config struct {
	Postgres         Postgres                `yaml:"postgres,omitempty"`
	CloseRings       *bool                   `yaml:"close_rings,omitempty"`
	Tolerance        *float64                `yaml:"tolerance,omitempty"` // degrees
	DefaultCountry   string                  `yaml:"default_country,omitempty"`
	CentroidProperty string                  `yaml:"centroid_property,omitempty"`
	OutputDir        string                  `yaml:"output_dir,omitempty"`
	Projections      []projection.Parameters `yaml:"projections,omitempty"`
	Layers           []Layer                 `yaml:"layers"`
	Workers          int                     `yaml:"workers,omitempty"`
}

// Postgres holds the connection settings shared by database layers.
type Postgres struct {
	DSN string `yaml:"dsn,omitempty"`
}

// Layer is one set of entities converted to one GeoJSON file.
type Layer struct {
	Tolerance *float64 `yaml:"tolerance,omitempty"`

	Name    string `yaml:"name"`
	Country string `yaml:"country,omitempty"`

	// File is a JSON or YAML entity file. When empty the layer is read from
	// PostgreSQL with the two queries below.
	File          string `yaml:"file,omitempty"`
	EntitiesQuery string `yaml:"entities_query,omitempty"`
	VerticesQuery string `yaml:"vertices_query,omitempty"`
	QueryArgs     []any  `yaml:"query_args,omitempty"` // bound to $1, $2... in both queries

	// Output defaults to <output_dir>/<name>.geojson
	Output string `yaml:"output,omitempty"`
	Format string `yaml:"format,omitempty"` // json or yaml
	Minify bool   `yaml:"minify,omitempty"`
}

// envRef matches ${NAME} references. Bare $NAME is left alone so that SQL
// placeholders such as $1 survive.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses the YAML configuration file from the specified path.
// ${NAME} references are replaced with environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	data = envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(ref[2 : len(ref)-1])))
	})
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}

	return &cfg, nil
}

// Validate checks layer names and sources.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Layers))
	for i, l := range c.Layers {
		switch {
		case l.Name == "":
			return errors.Wrapf(ErrInvalidConfig, "layer #%d has no name", i)
		case seen[l.Name]:
			return errors.Wrapf(ErrInvalidConfig, "duplicate layer %q", l.Name)
		case l.File == "" && l.EntitiesQuery == "":
			return errors.Wrapf(ErrInvalidConfig, "layer %q has neither file nor entities_query", l.Name)
		case l.File != "" && l.EntitiesQuery != "":
			return errors.Wrapf(ErrInvalidConfig, "layer %q has both file and entities_query", l.Name)
		case l.EntitiesQuery != "" && c.Postgres.DSN == "":
			return errors.Wrapf(ErrInvalidConfig, "layer %q reads postgres but postgres.dsn is empty", l.Name)
		case l.Format != "" && l.Format != "json" && l.Format != "yaml":
			return errors.Wrapf(ErrInvalidConfig, "layer %q: unknown format %q", l.Name, l.Format)
		case l.Format == "yaml" && l.Minify:
			return errors.Wrapf(ErrInvalidConfig, "layer %q: minify is only supported for json output", l.Name)
		case l.Country == "" && c.DefaultCountry == "":
			return errors.Wrapf(ErrInvalidConfig, "layer %q has no country and no default_country is set", l.Name)
		}
		seen[l.Name] = true
	}

	if c.Tolerance != nil && *c.Tolerance < 0 {
		return errors.Wrap(ErrInvalidConfig, "tolerance must not be negative")
	}

	return nil
}

// Registry returns the built-in projections extended with the configured ones.
func (c *Config) Registry() (*projection.Registry, error) {
	return projection.Builtin().With(c.Projections...)
}

// PipelineOptions returns the pipeline settings shared by all layers.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Tolerance: c.tolerance(),
		Workers:   c.Workers,
	}
}

// EncodeOptions returns the GeoJSON rendering settings.
func (c *Config) EncodeOptions() geo.EncodeOptions {
	closeRings := true
	if c.CloseRings != nil {
		closeRings = *c.CloseRings
	}
	return geo.EncodeOptions{CloseRings: closeRings, CentroidProperty: c.CentroidProperty}
}

func (c *Config) tolerance() float64 {
	if c.Tolerance != nil {
		return *c.Tolerance
	}
	return pipeline.DefaultTolerance
}

// LayerCountry returns the country of a layer, falling back to default_country.
func (c *Config) LayerCountry(l Layer) string {
	if l.Country != "" {
		return strings.ToUpper(l.Country)
	}
	return strings.ToUpper(c.DefaultCountry)
}

// LayerTolerance returns the simplification tolerance of a layer.
func (c *Config) LayerTolerance(l Layer) float64 {
	if l.Tolerance != nil {
		return *l.Tolerance
	}
	return c.tolerance()
}

// LayerOutput returns the output path of a layer.
func (c *Config) LayerOutput(l Layer) string {
	if l.Output != "" {
		return l.Output
	}

	ext := ".geojson"
	if l.Format == "yaml" {
		ext = ".yaml"
	}

	dir := c.OutputDir
	if dir == "" {
		dir = "layers"
	}
	return filepath.Join(dir, l.Name+ext)
}
