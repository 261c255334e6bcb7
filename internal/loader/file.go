package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/garyellow/campus-assist-go/internal/directory"
)

// File loads a table from a local file. The format follows the extension.
type File struct {
	Path string
}

// Load reads and decodes the file.
func (f *File) Load(_ context.Context, kind directory.Kind) (*directory.Table, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	return Decode(kind, data, filepath.Ext(f.Path))
}

// Object loads a table from an object-store key. The format follows the
// key's extension.
type Object struct {
	Key   string
	Store ObjectReader
}

// Load downloads and decodes the object.
func (o *Object) Load(ctx context.Context, kind directory.Kind) (*directory.Table, error) {
	body, _, err := o.Store.Download(ctx, o.Key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", o.Key, err)
	}
	return Decode(kind, data, path.Ext(o.Key))
}

// Decode parses data in the named format: csv, json, yaml/yml or toml.
// JSON and YAML hold a list of objects, or an object with a "rows" list;
// TOML holds a rows array of tables.
func Decode(kind directory.Kind, data []byte, format string) (*directory.Table, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "csv":
		return ParseCSV(kind, bytes.NewReader(data))
	case "json":
		records, err := decodeJSON(data)
		if err != nil {
			return nil, err
		}
		return directory.NormalizeRecords(kind, records), nil
	case "yaml", "yml":
		records, err := decodeYAML(data)
		if err != nil {
			return nil, err
		}
		return directory.NormalizeRecords(kind, records), nil
	case "toml":
		var doc struct {
			Rows []map[string]any `toml:"rows"`
		}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode TOML: %w", err)
		}
		return directory.NormalizeRecords(kind, doc.Rows), nil
	default:
		return nil, fmt.Errorf("unsupported file format %q", format)
	}
}

func decodeJSON(data []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var doc struct {
			Rows []map[string]any `json:"rows"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		return doc.Rows, nil
	}

	var records []map[string]any
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return records, nil
}

func decodeYAML(data []byte) ([]map[string]any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.MappingNode {
		var doc struct {
			Rows []map[string]any `yaml:"rows"`
		}
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
		return doc.Rows, nil
	}

	var records []map[string]any
	if err := root.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	return records, nil
}
