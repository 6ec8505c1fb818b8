package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/zonemap/internal/pipeline"
	"github.com/woozymasta/zonemap/internal/projection"
)

const sample = `
default_country: ma
tolerance: 0.0002
workers: 4
centroid_property: centroid
output_dir: out
postgres:
  dsn: ${ZONEMAP_TEST_CONFIG_DSN}
projections:
  - code: JM
    central_meridian: -77
    central_parallel: 18
    false_easting: 250000
    false_northing: 150000
    scale_factor: 1
    ellipsoid:
      a: 6378206.4
      rf: 294.9787
layers:
  - name: zones
    file: zones.yaml
  - name: parcels
    country: tn
    tolerance: 0
    entities_query: SELECT id, x, y, longitude, latitude, attributes FROM parcels WHERE region = $1
    vertices_query: SELECT owner_id, sequence, x, y FROM parcel_vertices WHERE region = $1
    query_args: [north]
    format: yaml
`

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("ZONEMAP_TEST_CONFIG_DSN", "postgres://localhost/zones")

	cfg, err := Load(write(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/zones", cfg.Postgres.DSN)
	require.Len(t, cfg.Layers, 2)

	zones, parcels := cfg.Layers[0], cfg.Layers[1]
	assert.Equal(t, "MA", cfg.LayerCountry(zones))
	assert.Equal(t, "TN", cfg.LayerCountry(parcels))
	assert.Equal(t, 0.0002, cfg.LayerTolerance(zones))
	assert.Equal(t, 0.0, cfg.LayerTolerance(parcels))
	assert.Equal(t, filepath.Join("out", "zones.geojson"), cfg.LayerOutput(zones))
	assert.Equal(t, filepath.Join("out", "parcels.yaml"), cfg.LayerOutput(parcels))

	opts := cfg.PipelineOptions()
	assert.Equal(t, 0.0002, opts.Tolerance)
	assert.Equal(t, 4, opts.Workers)

	enc := cfg.EncodeOptions()
	assert.True(t, enc.CloseRings)
	assert.Equal(t, "centroid", enc.CentroidProperty)
}

func TestRegistryIncludesConfiguredProjections(t *testing.T) {
	t.Setenv("ZONEMAP_TEST_CONFIG_DSN", "postgres://localhost/zones")
	cfg, err := Load(write(t, sample))
	require.NoError(t, err)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"DZ", "JM", "MA", "TN"}, reg.Codes())
}

func TestRegistryRejectsInvalidProjection(t *testing.T) {
	cfg := &Config{Projections: []projection.Parameters{{Code: "XX"}}}
	_, err := cfg.Registry()
	assert.True(t, errors.Is(err, projection.ErrInvalidParameters))
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, pipeline.DefaultTolerance, cfg.PipelineOptions().Tolerance)
	assert.True(t, cfg.EncodeOptions().CloseRings)
	assert.Equal(t, filepath.Join("layers", "a.geojson"), cfg.LayerOutput(Layer{Name: "a"}))
	assert.Equal(t, "custom.json", cfg.LayerOutput(Layer{Name: "a", Output: "custom.json"}))

	closed := false
	cfg.CloseRings = &closed
	assert.False(t, cfg.EncodeOptions().CloseRings)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		msg  string
	}{
		{"no name", Config{DefaultCountry: "MA", Layers: []Layer{{File: "a"}}}, "has no name"},
		{"duplicate", Config{DefaultCountry: "MA", Layers: []Layer{{Name: "a", File: "a"}, {Name: "a", File: "b"}}}, "duplicate layer"},
		{"no source", Config{DefaultCountry: "MA", Layers: []Layer{{Name: "a"}}}, "neither file nor entities_query"},
		{"both sources", Config{DefaultCountry: "MA", Layers: []Layer{{Name: "a", File: "a", EntitiesQuery: "q"}}}, "both file and entities_query"},
		{"no dsn", Config{DefaultCountry: "MA", Layers: []Layer{{Name: "a", EntitiesQuery: "q"}}}, "postgres.dsn is empty"},
		{"format", Config{DefaultCountry: "MA", Layers: []Layer{{Name: "a", File: "a", Format: "kml"}}}, "unknown format"},
		{"minified yaml", Config{DefaultCountry: "MA", Layers: []Layer{{Name: "a", File: "a", Format: "yaml", Minify: true}}}, "minify is only supported for json"},
		{"minified json", Config{DefaultCountry: "MA", Layers: []Layer{{Name: "a", File: "a", Format: "json", Minify: true}}}, ""},
		{"no country", Config{Layers: []Layer{{Name: "a", File: "a"}}}, "no country"},
		{"zero tolerance", Config{Tolerance: new(float64)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	negative := -1.0
	err := (&Config{Tolerance: &negative}).Validate()
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(write(t, "layers: ["))
	assert.ErrorContains(t, err, "parse")

	_, err = Load(write(t, "layers:\n  - name: a\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoadKeepsSQLPlaceholders(t *testing.T) {
	t.Setenv("ZONEMAP_TEST_CONFIG_DSN", "postgres://localhost/zones")
	cfg, err := Load(write(t, sample))
	require.NoError(t, err)
	assert.Contains(t, cfg.Layers[1].EntitiesQuery, "region = $1")
	assert.Equal(t, []any{"north"}, cfg.Layers[1].QueryArgs)
}
