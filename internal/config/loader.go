package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultPath is read when no --config flag is given, if it exists.
	DefaultPath = "rematch.yaml"

	// EnvPrefix marks environment variables that override the file.
	EnvPrefix = "REMATCH_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load reads configuration from the YAML file at path, then overrides it
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (REMATCH_DATABASE_DSN, REMATCH_ENGINE_BATCH_SIZE, ...)
//  2. YAML config file
//  3. Default()
//
// An empty path reads DefaultPath when it exists and skips the file
// otherwise. An explicit path that does not exist is an error.
//
// # Environment Variable Mapping
//
// The prefix is stripped, the rest is lowercased and split on the first
// underscore into section and field:
//
//	REMATCH_DATABASE_DSN      -> database.dsn
//	REMATCH_ENGINE_MIN_SCORE  -> engine.min_score
//	REMATCH_NATS_EVENTS_PREFIX -> nats.events_prefix
func Load(path string) (*Config, error) {
	var content []byte
	switch {
	case path != "":
		b, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		content = b
	default:
		b, err := readConfigFile(DefaultPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		content = b
	}
	return load(content)
}

// load layers content and the environment over Default().
func load(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps REMATCH_SECTION_FIELD_NAME to section.field_name.
func envKey(key, value string) (string, any) {
	lower := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return "", nil
	}
	return section + "." + field, value
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
