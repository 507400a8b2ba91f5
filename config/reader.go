package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Read reads and validates a config from the given file. Fields absent from the file keep
// their defaults.
func Read(filePath string) (*Config, error) {
	cfg, err := Load(filePath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(filePath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is like Read but leaves validation to the caller, which may still complete the config
// from other sources.
func Load(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", filePath)
	}
	return decode(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	cfg, err := decode(originalPath, r)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(originalPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode accepts JSON5 (comments, trailing commas, unquoted keys) and rejects unknown fields.
func decode(originalPath string, r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config from %q", originalPath)
	}
	var doc map[string]interface{}
	if err := json5.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config from %q", originalPath)
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config from %q", originalPath)
	}
	return cfg, nil
}
