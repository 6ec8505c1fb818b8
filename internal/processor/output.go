package processor

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"github.com/tdewolff/minify/v2"
	minjson "github.com/tdewolff/minify/v2/json"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrMinifyYAML is returned when minified YAML output is requested.
var ErrMinifyYAML = errors.New("minify applies to json output only")

// Marshal renders a feature collection. JSON is indented unless minified.
// YAML output cannot be minified.
func Marshal(fc *geojson.FeatureCollection, format string, minified bool) ([]byte, error) {
	switch format {
	case "", FormatJSON:
		if !minified {
			return json.MarshalIndent(fc, "", "  ")
		}

		data, err := json.Marshal(fc)
		if err != nil {
			return nil, err
		}
		m := minify.New()
		m.AddFunc("application/json", minjson.Minify)
		return m.Bytes("application/json", data)

	case FormatYAML:
		if minified {
			return nil, ErrMinifyYAML
		}

		// round trip through JSON so the GeoJSON field layout is kept
		data, err := json.Marshal(fc)
		if err != nil {
			return nil, err
		}
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return yaml.Marshal(doc)
	}

	return nil, errors.Errorf("unknown output format %q", format)
}
