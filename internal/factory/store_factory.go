package factory

import (
	"context"
	"fmt"

	"github.com/salmadev/dealer-chat/internal/adapters/store"
	"github.com/salmadev/dealer-chat/internal/config"
	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates lead stores
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{cfg: cfg, logger: logger}
}

// CreateLeadStore creates the configured lead store
func (f *StoreFactory) CreateLeadStore() (core.LeadStore, error) {
	storeType := f.cfg.GetString("store.type")

	switch storeType {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		return store.NewSQLiteStore(f.cfg.GetString("store.sqlite_path"), f.logger)
	case "postgres":
		return store.NewPostgresStore(context.Background(), f.cfg.GetString("store.postgres_dsn"), f.logger)
	case "mysql":
		return store.NewMySQLStore(f.cfg.GetString("store.mysql_dsn"), f.logger)
	case "none":
		return store.NewNullStore(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
