package processor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func collection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{-7.61, 33.59})
	f.Properties["name"] = "Casablanca"
	fc.Append(f)
	return fc
}

func TestMarshalJSON(t *testing.T) {
	data, err := Marshal(collection(), FormatJSON, false)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ")

	minified, err := Marshal(collection(), "", true)
	require.NoError(t, err)
	assert.NotContains(t, string(minified), "\n")
	assert.NotContains(t, string(minified), " ")
	assert.JSONEq(t, string(data), string(minified))
}

func TestMarshalYAML(t *testing.T) {
	data, err := Marshal(collection(), FormatYAML, false)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "type: FeatureCollection"))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	js, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[{"type":"Feature",
		"geometry":{"type":"Point","coordinates":[-7.61,33.59]},
		"properties":{"name":"Casablanca"}}]}`, string(js))
}

func TestMarshalMinifiedYAMLRejected(t *testing.T) {
	_, err := Marshal(collection(), FormatYAML, true)
	assert.ErrorIs(t, err, ErrMinifyYAML)
}

func TestMarshalUnknownFormat(t *testing.T) {
	_, err := Marshal(collection(), "kml", false)
	assert.EqualError(t, err, `unknown output format "kml"`)
}
