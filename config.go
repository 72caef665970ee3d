package slotdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/tailscale/hujson"
)

const (
	BackendMem  = "mem"
	BackendBolt = "bolt"
	BackendFile = "file"
)

var ErrConfigInvalid = errors.New("invalid config")

// Config describes a database and the store backing it. It is read from
// JSON with comments and trailing commas allowed:
//
//	{
//	  "name": "settings",
//	  "chunk_size": 1000,
//	  "backend": "bolt", // mem, bolt or file
//	  "path": "settings.db",
//	}
type Config struct {
	Name      string `json:"name"`
	ChunkSize int    `json:"chunk_size,omitempty"`
	Backend   string `json:"backend,omitempty"`
	Path      string `json:"path,omitempty"`
	Verbose   bool   `json:"verbose,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		ChunkSize: DefaultChunkSize,
		Backend:   BackendMem,
	}
}

// LoadConfig reads a config file on top of DefaultConfig. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return Config{}, fmt.Errorf("cannot read config: %w", err)
	}
	if err := cfg.merge(data); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}
	return cfg, nil
}

// ParseConfig is LoadConfig for an already open source.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.merge(data); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return cfg, nil
}

func (cfg *Config) merge(data []byte) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func (cfg Config) Validate() error {
	if err := validateName(cfg.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("%w: %w: %d", ErrConfigInvalid, ErrInvalidChunkSize, cfg.ChunkSize)
	}
	switch cfg.Backend {
	case BackendMem:
	case BackendBolt, BackendFile:
		if cfg.Path == "" {
			return fmt.Errorf("%w: backend %q requires a path", ErrConfigInvalid, cfg.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrConfigInvalid, cfg.Backend)
	}
	return nil
}

// OpenStore opens the configured backend. The caller owns the returned
// store and must close it.
func (cfg Config) OpenStore() (Store, io.Closer, error) {
	switch cfg.Backend {
	case BackendMem:
		s := NewMemStore()
		return s, s, nil
	case BackendBolt:
		s, err := OpenBoltStore(cfg.Path, BoltOptions{})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendFile:
		s, err := OpenFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown backend %q", ErrConfigInvalid, cfg.Backend)
	}
}

func (cfg Config) Options(logger *slog.Logger) Options {
	return Options{
		Name:      cfg.Name,
		ChunkSize: cfg.ChunkSize,
		Logger:    logger,
		Verbose:   cfg.Verbose,
	}
}
