package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned when a schema payload has no content.
var ErrEmptyDocument = errors.New("schema: document is empty")

// Parse decodes a JSON or YAML schema document. JSON is attempted first; YAML
// documents are normalised to JSON so explicit nulls and custom decoders
// behave the same for both formats. Descriptions are sanitised.
func Parse(doc Document) (*Schema, error) {
	raw := doc.Raw()
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, doc.Location())
	}

	var out Schema
	jsonErr := json.Unmarshal(raw, &out)
	if jsonErr != nil {
		converted, err := yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("schema: parse %s %s: invalid JSON or YAML: %w", doc.Kind(), doc.Location(), errors.Join(jsonErr, err))
		}
		out = Schema{}
		if err := json.Unmarshal(converted, &out); err != nil {
			return nil, fmt.Errorf("schema: parse %s %s: %w", doc.Kind(), doc.Location(), err)
		}
	}

	Sanitize(&out)
	return &out, nil
}

// ParseBytes is a convenience wrapper around Parse for in-memory payloads.
func ParseBytes(raw []byte, location string) (*Schema, error) {
	if location == "" {
		location = "inline"
	}
	doc, err := NewDocument(SourceFromFS(location), raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, location)
	}
	return Parse(doc)
}

// LoadFile reads and parses a schema from disk.
func LoadFile(path string) (*Schema, error) {
	src := SourceFromFile(path)
	data, err := os.ReadFile(src.Location())
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", src.Location(), err)
	}
	doc, err := NewDocument(src, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, src.Location())
	}
	return Parse(doc)
}

// MaxURLBytes caps the size of a schema fetched by LoadURL.
const MaxURLBytes = 4 << 20

// LoadURL fetches and parses a schema over HTTP. A nil client uses
// http.DefaultClient; the request is bound to ctx.
func LoadURL(ctx context.Context, client *http.Client, raw string) (*Schema, error) {
	src, err := SourceFromURL(raw)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Location(), nil)
	if err != nil {
		return nil, fmt.Errorf("schema: build request %s: %w", src.Location(), err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch %s: %w", src.Location(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("schema: fetch %s: unexpected status %s", src.Location(), resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxURLBytes+1))
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", src.Location(), err)
	}
	if len(data) > MaxURLBytes {
		return nil, fmt.Errorf("schema: %s exceeds %d bytes", src.Location(), MaxURLBytes)
	}
	doc, err := NewDocument(src, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, src.Location())
	}
	return Parse(doc)
}

// LoadFS walks fsys and parses every JSON/YAML file, keyed by path. A nil fsys
// yields an empty map.
func LoadFS(fsys fs.FS) (map[string]*Schema, error) {
	out := make(map[string]*Schema)
	if fsys == nil {
		return out, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		doc, err := NewDocument(SourceFromFS(path), data)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrEmptyDocument, path)
		}
		parsed, err := Parse(doc)
		if err != nil {
			return err
		}
		out[path] = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal encodes a schema as indented JSON.
func Marshal(s *Schema) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var node any
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	if _, ok := node.(map[string]any); !ok {
		return nil, fmt.Errorf("expected a mapping at the document root, got %T", node)
	}
	return json.Marshal(normalizeYAML(node))
}

// normalizeYAML rewrites map[any]any nodes that yaml emits for non-string
// keys into JSON-compatible maps.
func normalizeYAML(node any) any {
	switch v := node.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeYAML(item)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}
		return v
	default:
		return v
	}
}
