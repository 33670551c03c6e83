package factory

import (
	"fmt"
	"time"

	"github.com/salmadev/dealer-chat/internal/adapters/frontend"
	"github.com/salmadev/dealer-chat/internal/config"
	"github.com/salmadev/dealer-chat/internal/core"
	"github.com/salmadev/dealer-chat/internal/ports"
	"go.uber.org/zap"
)

// FrontendFactory creates chat frontends
type FrontendFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFrontendFactory creates a new frontend factory
func NewFrontendFactory(cfg *config.Config, logger *zap.Logger) *FrontendFactory {
	return &FrontendFactory{cfg: cfg, logger: logger}
}

// CreateFrontend creates the configured chat frontend
func (f *FrontendFactory) CreateFrontend(service *core.ChatService, guard *core.AbuseGuard) (ports.ChatFrontend, error) {
	frontendType := f.cfg.GetString("server.frontend_type")

	switch frontendType {
	case "http":
		return frontend.NewHTTPFrontend(frontend.HTTPConfig{
			ListenAddr:     f.cfg.GetString("server.listen_address"),
			AllowedOrigins: f.cfg.GetStringSlice("server.cors_origins"),
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
		}, service, guard, f.logger), nil
	case "cli":
		return frontend.NewCLIFrontend(service, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported frontend type: %s", frontendType)
	}
}
