package source

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/zonemap/internal/pipeline"
)

// Document is an entity file. It is either a bare list of records or a
// mapping with an optional country and a records list.
type Document struct {
	Country string   `json:"country,omitempty" yaml:"country,omitempty"`
	Records []Record `json:"entities" yaml:"entities"`
}

// Entities converts every record of the document, malformed ones included.
func (d Document) Entities() []pipeline.Entity {
	out := make([]pipeline.Entity, 0, len(d.Records))
	for _, r := range d.Records {
		out = append(out, r.Entity())
	}
	return out
}

// LoadFile reads a JSON or YAML entity file.
func LoadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = f.Close() }()

	doc, err := Decode(f)
	if err != nil {
		return Document{}, errors.Wrapf(err, "decode %s", path)
	}
	return doc, nil
}

// Decode reads a JSON or YAML entity document from r. Input starting with
// '{' or '[' is decoded as JSON first; YAML flow documents that are not
// valid JSON fall through to the YAML decoder.
func Decode(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Document{}, nil
	}

	var jsonErr error
	if data[0] == '[' || data[0] == '{' {
		doc, err := decodeJSON(data)
		if err == nil {
			return doc, nil
		}
		jsonErr = err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		if jsonErr != nil {
			return Document{}, jsonErr
		}
		return Document{}, err
	}
	if len(node.Content) == 0 {
		return Document{}, nil
	}

	var doc Document
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		err = root.Decode(&doc.Records)
	case yaml.MappingNode:
		err = root.Decode(&doc)
	default:
		err = errors.Errorf("line %d: expected a list of entities or a mapping", root.Line)
	}
	if err != nil {
		return Document{}, err
	}

	return doc, nil
}

func decodeJSON(data []byte) (Document, error) {
	var doc Document
	var err error
	if data[0] == '[' {
		err = json.Unmarshal(data, &doc.Records)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return Document{}, errors.Wrap(err, "decode json")
	}
	return doc, nil
}
