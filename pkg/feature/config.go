package feature

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is a parsed feature configuration, in document order.
type Config struct {
	Features []*Feature
}

// Feature returns the configured feature with the given uid.
func (c *Config) Feature(uid string) (*Feature, bool) {
	for _, f := range c.Features {
		if f.UID() == uid {
			return f, true
		}
	}
	return nil, false
}

// document is the on-disk layout shared by every parser.
type document struct {
	Features []Record `json:"features" yaml:"features"`
}

func (d document) config() (*Config, error) {
	cfg := &Config{Features: make([]*Feature, 0, len(d.Features))}
	seen := make(map[string]struct{}, len(d.Features))
	for i, r := range d.Features {
		if _, dup := seen[r.UID]; dup {
			return nil, errors.Join(ErrConfiguration, fmt.Errorf("feature %q is declared twice", r.UID))
		}
		seen[r.UID] = struct{}{}

		f, err := FromRecord(r)
		if err != nil {
			return nil, errors.Join(ErrConfiguration, fmt.Errorf("feature #%d", i), err)
		}
		cfg.Features = append(cfg.Features, f)
	}
	return cfg, nil
}

// Parser reads a feature configuration document.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) (*Config, error)
}

// YAMLParser reads configuration documents in YAML.
type YAMLParser struct{}

func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

func (p *YAMLParser) Parse(ctx context.Context, r io.Reader) (*Config, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrConfiguration, err)
	}
	return doc.config()
}

// JSONParser reads configuration documents in JSON. Comments and trailing
// commas are accepted.
type JSONParser struct{}

func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

func (p *JSONParser) Parse(ctx context.Context, r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(ErrConfiguration, err)
	}
	var doc document
	if stripped := jsonc.ToJSON(data); len(bytes.TrimSpace(stripped)) > 0 {
		if err := json.Unmarshal(stripped, &doc); err != nil {
			return nil, errors.Join(ErrConfiguration, err)
		}
	}
	return doc.config()
}

// NewParserForFile picks a parser from the file extension.
func NewParserForFile(path string) (Parser, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "yaml", "yml":
		return NewYAMLParser(), nil
	case "json", "jsonc":
		return NewJSONParser(), nil
	default:
		return nil, errors.Join(ErrConfiguration, fmt.Errorf("unsupported config file %q", path))
	}
}

// WriteYAML encodes features in the document layout the parsers read.
func WriteYAML(w io.Writer, features []*Feature) error {
	doc := document{Features: make([]Record, 0, len(features))}
	for _, f := range features {
		doc.Features = append(doc.Features, ToRecord(f))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
