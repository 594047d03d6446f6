package goConsole

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "GOCONSOLE_CONFIG"

// DecodeConfig reads a YAML document over DefaultConfig. Fields absent from
// the document keep their defaults; unknown fields are rejected. Durations
// use Go duration strings such as "300ms" or "1m".
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads the YAML file at path. An empty path falls back to
// $GOCONSOLE_CONFIG, and to DefaultConfig when that is unset too.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path == "" {
		cfg := DefaultConfig()
		return cfg, cfg.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return DecodeConfig(bytes.NewReader(raw))
}
