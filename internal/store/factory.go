package store

import (
	"fmt"

	"evscan/internal/config"
)

// NewStoreFromConfig creates a Store implementation based on the store
// config type. Type "none" (or empty) returns nil: publication is
// disabled.
func NewStoreFromConfig(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(cfg.Name), nil
	case "s3":
		return NewS3Store(cfg)
	case "filesystem":
		if cfg.FSStoreRoot == "" {
			return nil, fmt.Errorf("filesystem store requires fs_store_root to be set")
		}
		return NewFileSystemStore(cfg.Name, cfg.FSStoreRoot)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
