// app/app.go

// Package app runs a service through the standard startup sequence.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/logging"
	"github.com/dalemusser/contactform/metrics"
	"github.com/dalemusser/contactform/server"
	"go.uber.org/zap"
)

// Hooks are the integration points a service provides to Run.
type Hooks[C any, D any] struct {
	// Name is used only for logging.
	Name string

	// LoadConfig returns the core config and the service's own config.
	LoadConfig func(logger *zap.Logger) (*config.CoreConfig, C, error)

	// Prepare loads whatever the handlers depend on (templates, documents,
	// watchers). Background work it starts must stop when ctx is done.
	Prepare func(ctx context.Context, core *config.CoreConfig, appCfg C, logger *zap.Logger) (D, error)

	// BuildHandler constructs the final http.Handler: router, middleware
	// and routes.
	BuildHandler func(core *config.CoreConfig, appCfg C, deps D, logger *zap.Logger) (http.Handler, error)
}

// Run executes the startup sequence:
//
//  1. Bootstrap logger
//  2. Load core + app config (Hooks.LoadConfig)
//  3. Build final logger based on core config
//  4. Register default metrics
//  5. Wire shutdown signals to a context
//  6. Prepare dependencies (Hooks.Prepare)
//  7. Build the HTTP handler (Hooks.BuildHandler)
//  8. Start the HTTP(S) server and block until shutdown
func Run[C any, D any](ctx context.Context, hooks Hooks[C, D]) error {
	bootstrap := logging.BootstrapLogger()
	defer bootstrap.Sync()
	bootstrap.Info("bootstrap logger initialized", zap.String("app", hooks.Name))

	coreCfg, appCfg, err := hooks.LoadConfig(bootstrap)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return fmt.Errorf("load config: %w", err)
	}
	bootstrap.Info("config loaded",
		zap.String("env", coreCfg.Env),
		zap.String("log_level", coreCfg.LogLevel),
	)

	logger, err := logging.BuildLogger(coreCfg.LogLevel, coreCfg.Env)
	if err != nil {
		bootstrap.Error("logger build failed", zap.Error(err))
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("logger initialized", zap.String("app", hooks.Name))

	metrics.RegisterDefault(logger)

	ctx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	var deps D
	if hooks.Prepare != nil {
		deps, err = hooks.Prepare(ctx, coreCfg, appCfg, logger)
		if err != nil {
			logger.Error("prepare failed", zap.Error(err))
			return fmt.Errorf("prepare: %w", err)
		}
	}

	handler, err := hooks.BuildHandler(coreCfg, appCfg, deps, logger)
	if err != nil {
		logger.Error("handler build failed", zap.Error(err))
		return fmt.Errorf("build handler: %w", err)
	}

	if err := server.ListenAndServeWithContext(ctx, coreCfg, handler, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
