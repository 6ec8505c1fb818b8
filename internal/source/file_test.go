package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/zonemap/internal/geometry"
)

const yamlDoc = `
country: MA
entities:
  - id: 12
    vertices:
      - {sequence: 2, x: 401000, y: 371000}
      - {sequence: 1, x: 400000, y: 370000}
      - {sequence: 3, x: 400500, y: 372000}
    attributes:
      name: Zone A
      tags: [industrial, north]
  - id: p-7
    x: 390000.5
    y: 365000
  - id: legacy
    longitude: -7.61
    latitude: 33.59
  - id: empty
`

const jsonDoc = `[
  {"id": "a", "x": 1, "y": 2, "attributes": {"area": 3.5}},
  {"id": "b", "vertices": [{"sequence": 1, "x": 5, "y": 6}]}
]`

func TestDecodeYAML(t *testing.T) {
	doc, err := Decode(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, "MA", doc.Country)

	entities := doc.Entities()
	require.Len(t, entities, 4)

	zone := entities[0]
	assert.Equal(t, "12", zone.ID)
	assert.Equal(t, geometry.Vertex{Sequence: 2, X: 401000, Y: 371000}, zone.Ring[0])
	assert.Equal(t, "Zone A", zone.Attributes["name"])
	assert.Equal(t, []any{"industrial", "north"}, zone.Attributes["tags"])
	assert.Nil(t, zone.Planar)

	assert.Equal(t, &orb.Point{390000.5, 365000}, entities[1].Planar)
	assert.Equal(t, &orb.Point{-7.61, 33.59}, entities[2].Geographic)

	empty := entities[3]
	assert.Empty(t, empty.Ring)
	assert.Nil(t, empty.Planar)
	assert.Nil(t, empty.Geographic)
}

func TestDecodeJSONList(t *testing.T) {
	doc, err := Decode(strings.NewReader(jsonDoc))
	require.NoError(t, err)
	assert.Empty(t, doc.Country)

	entities := doc.Entities()
	require.Len(t, entities, 2)
	assert.Equal(t, &orb.Point{1, 2}, entities[0].Planar)
	assert.Equal(t, 3.5, entities[0].Attributes["area"])
	assert.Len(t, entities[1].Ring, 1)
}

func TestDecodeEmpty(t *testing.T) {
	doc, err := Decode(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, doc.Records)
}

func TestDecodeScalarRejected(t *testing.T) {
	_, err := Decode(strings.NewReader("just a string"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a list")
}

func TestIncompletePairKeepsSiblings(t *testing.T) {
	doc, err := Decode(strings.NewReader(`[{"id": "A", "x": 500000, "y": 300000}, {"id": "B", "x": 1}]`))
	require.NoError(t, err)

	entities := doc.Entities()
	require.Len(t, entities, 2)

	assert.NoError(t, entities[0].Err)
	assert.Equal(t, &orb.Point{500000, 300000}, entities[0].Planar)

	assert.Equal(t, "B", entities[1].ID)
	assert.True(t, errors.Is(entities[1].Err, ErrInvalidRecord))
	assert.Contains(t, entities[1].Err.Error(), "x/y")
}

func TestDecodeJSONEscapes(t *testing.T) {
	doc, err := Decode(strings.NewReader(`[{"id": "a", "x": 1, "y": 2, "attributes": {"url": "https:\/\/example.com\/zones"}}]`))
	require.NoError(t, err)

	entities := doc.Entities()
	require.Len(t, entities, 1)
	assert.Equal(t, "https://example.com/zones", entities[0].Attributes["url"])
}

func TestDecodeJSONDocument(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{"country": "TN", "entities": [{"id": 1234567, "longitude": 10.1, "latitude": 36.8}]}`))
	require.NoError(t, err)
	assert.Equal(t, "TN", doc.Country)

	entities := doc.Entities()
	require.Len(t, entities, 1)
	assert.Equal(t, "1234567", entities[0].ID)
	assert.Equal(t, &orb.Point{10.1, 36.8}, entities[0].Geographic)
}

func TestDecodeYAMLFlowMapping(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{country: DZ, entities: [{id: z, x: 1, y: 2}]}`))
	require.NoError(t, err)
	assert.Equal(t, "DZ", doc.Country)
	assert.Len(t, doc.Records, 1)
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"id": "a",`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode json")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Records, 4)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}
