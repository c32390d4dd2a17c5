package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vinicius-lino-figueiredo/kvdb"
)

// Storage kinds accepted by --storage.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageBolt   = "bolt"
	StorageSQLite = "sqlite"
	StorageBadger = "badger"
)

// ValidStorages lists the accepted storage kinds.
var ValidStorages = []string{StorageMemory, StorageFile, StorageBolt, StorageSQLite, StorageBadger}

// Config is the content of the file given with --config.
type Config struct {
	Storage     string                      `yaml:"storage"`
	Path        string                      `yaml:"path"`
	Database    string                      `yaml:"database"`
	Group       string                      `yaml:"group"`
	Collections map[string]CollectionConfig `yaml:"collections"`
}

// CollectionConfig holds the options used when opening one collection.
type CollectionConfig struct {
	Group            string        `yaml:"group"`
	MaxLength        int64         `yaml:"maxLength"`
	MaxSize          int64         `yaml:"maxSize"`
	RemoveAfterLimit *bool         `yaml:"removeAfterLimit"`
	ExpirationKey    string        `yaml:"expirationKey"`
	ExpirationEvery  time.Duration `yaml:"expirationEvery"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Options converts the entry into collection options.
func (c CollectionConfig) Options() []kvdb.CollectionOption {
	var opts []kvdb.CollectionOption
	if c.Group != "" {
		opts = append(opts, kvdb.WithGroup(c.Group))
	}
	if c.MaxLength > 0 {
		opts = append(opts, kvdb.WithMaxLength(c.MaxLength))
	}
	if c.MaxSize > 0 {
		opts = append(opts, kvdb.WithMaxSize(c.MaxSize))
	}
	if c.RemoveAfterLimit != nil {
		opts = append(opts, kvdb.WithRemoveAfterLimit(*c.RemoveAfterLimit))
	}
	if c.ExpirationKey != "" {
		opts = append(opts, kvdb.WithExpirationKey(c.ExpirationKey))
	}
	if c.ExpirationEvery > 0 {
		opts = append(opts, kvdb.WithExpirationEvery(c.ExpirationEvery))
	}
	return opts
}

func isValidStorage(kind string) bool {
	for _, s := range ValidStorages {
		if s == kind {
			return true
		}
	}
	return false
}

// openStorage creates the storage named by kind. Every kind but memory needs
// a path.
func openStorage(kind, path string) (kvdb.Storage, error) {
	if kind != StorageMemory && path == "" {
		return nil, fmt.Errorf("storage %q requires --path", kind)
	}
	switch kind {
	case StorageMemory:
		return kvdb.NewMemoryStorage(), nil
	case StorageFile:
		return kvdb.NewFileStorage(path), nil
	case StorageBolt:
		return kvdb.NewBoltStorage(path)
	case StorageSQLite:
		return kvdb.NewSQLiteStorage(path)
	case StorageBadger:
		return kvdb.NewBadgerStorage(path)
	}
	return nil, fmt.Errorf("invalid storage %q: must be one of %v", kind, ValidStorages)
}
