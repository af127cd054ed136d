package regions

import (
	"bytes"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-parking/images"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// maxDefinitionSize caps the size of a region definition file.
const maxDefinitionSize = 4 * 1024 * 1024

// Definition is one serialized region: an ordered vertex list and whether the
// stalls inside are handicap stalls.
//
// In JSON a definition is either an object
//
//	{"points": [[x, y], ...], "handicap": true}
//
// or a two element array
//
//	[[[x, y], ...], true]
type Definition struct {
	Points   [][]int `json:"points" yaml:"points"`
	Handicap bool    `json:"handicap" yaml:"handicap"`
}

// UnmarshalJSON accepts both the object and the pair encodings.
func (d *Definition) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pair []json.RawMessage
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return errors.Errorf("region pair must have 2 elements, got %d", len(pair))
		}
		if err := json.Unmarshal(pair[0], &d.Points); err != nil {
			return errors.Wrap(err, "region points")
		}
		if err := json.Unmarshal(pair[1], &d.Handicap); err != nil {
			return errors.Wrap(err, "region handicap flag")
		}
		return nil
	}

	type plain Definition
	var p plain
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return err
	}
	*d = Definition(p)
	return nil
}

// Category returns the category of the region.
func (d Definition) Category() Category {
	if d.Handicap {
		return Handicap
	}
	return Normal
}

// Polygon converts the vertex list to a polygon.
//
// Returns:
//   - images.Polygon: The polygon.
//   - error: An error if a vertex is not an (x, y) pair or there are fewer than three vertices.
func (d Definition) Polygon() (images.Polygon, error) {
	if len(d.Points) < 3 {
		return nil, errors.Errorf("polygon needs at least 3 vertices, got %d", len(d.Points))
	}
	polygon := make(images.Polygon, len(d.Points))
	for i, v := range d.Points {
		if len(v) != 2 {
			return nil, errors.Errorf("vertex %d must be an (x, y) pair, got %d values", i, len(v))
		}
		polygon[i] = image.Point{X: v[0], Y: v[1]}
	}
	return polygon, nil
}

// Format is the serialization of a region definition file.
type Format string

const (
	// FormatJSON is a JSON array of definitions.
	FormatJSON Format = "json"
	// FormatYAML is a YAML sequence of definitions.
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.Errorf("unsupported region file extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Parse decodes region definitions.
//
// Arguments:
//   - data: The serialized definitions.
//   - format: The serialization format.
//
// Returns:
//   - []Definition: The definitions in file order.
//   - error: An error if the data is malformed.
func Parse(data []byte, format Format) ([]Definition, error) {
	var defs []Definition
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &defs); err != nil {
			return nil, errors.Wrap(err, "decode json regions")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&defs); err != nil {
			return nil, errors.Wrap(err, "decode yaml regions")
		}
	default:
		return nil, errors.Errorf("unknown region format %q", format)
	}
	return defs, nil
}

// Load reads a region definition file and builds the registry from it. Any
// failure here is a startup error; callers are expected to exit.
//
// Arguments:
//   - path: Path to a .json, .yaml or .yml file.
//
// Returns:
//   - *Registry: The registry.
//   - error: An error if the file is missing, too large or malformed.
func Load(path string) (*Registry, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat region file")
	}
	if info.Size() > maxDefinitionSize {
		return nil, errors.Errorf("region file too large: %d bytes (max %d)", info.Size(), maxDefinitionSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read region file")
	}

	defs, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	registry, err := NewRegistry(defs)
	if err != nil {
		return nil, errors.Wrapf(err, "build regions from %s", path)
	}
	return registry, nil
}
