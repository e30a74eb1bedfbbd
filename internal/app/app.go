package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/paramgrid/internal/config"
	"github.com/specialistvlad/paramgrid/internal/ctxlog"
	"github.com/specialistvlad/paramgrid/internal/hclload"
	"github.com/specialistvlad/paramgrid/internal/orchestrator"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/yamlload"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	cfg     *Config
	loader  *config.Loader
	modules []Module
}

// NewApp is the constructor for the main application. Reports are written to
// outW and logs to logW. When no modules are given the core modules are used.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules()
	}

	return &App{
		outW:    outW,
		logger:  logger,
		cfg:     cfg,
		loader:  config.NewLoader(hclload.New(), yamlload.New()),
		modules: modules,
	}
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// orchestrator builds an orchestrator over reg with every module registered.
func (a *App) orchestrator(ctx context.Context, reg *registry.Registry) (*orchestrator.Orchestrator, error) {
	logger := ctxlog.FromContext(ctx)

	var opts []orchestrator.Option
	if a.cfg.Workers > 0 {
		opts = append(opts, orchestrator.WithWorkers(a.cfg.Workers))
	}
	o := orchestrator.New(reg, opts...)

	for _, mod := range a.modules {
		if err := mod.Register(o); err != nil {
			return nil, fmt.Errorf("failed to register module %T: %w", mod, err)
		}
	}
	logger.Debug("All Go modules registered.", "modules", len(a.modules), "units", len(o.Units()), "workers", o.Workers())
	return o, nil
}
