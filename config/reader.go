package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/utils"
)

// Read reads a config from the given file, expanding environment variables first.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
// Files ending in .yaml or .yml are YAML; everything else is JSON. Keys the file does not name
// keep their default.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	raw, err := decodeRaw(originalPath, r)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	unused, err := utils.DecodeAttributes(cfg, raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode Config")
	}
	if len(unused) > 0 {
		logger.Warnw("config has unknown keys, ignoring them", "path", originalPath, "keys", unused)
	}
	cfg.ConfigFilePath = originalPath
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func decodeRaw(originalPath string, r io.Reader) (utils.AttributeMap, error) {
	raw := utils.AttributeMap{}
	switch strings.ToLower(filepath.Ext(originalPath)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "failed to decode Config from yaml")
		}
	default:
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, errors.Wrap(err, "failed to decode Config from json")
		}
	}
	return raw, nil
}
