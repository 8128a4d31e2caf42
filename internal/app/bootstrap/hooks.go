// internal/app/bootstrap/hooks.go

// Package bootstrap wires the contact form service into the app lifecycle.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/contactform/app"
	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/internal/app/features/clock"
	"github.com/dalemusser/contactform/internal/app/features/contact"
	"github.com/dalemusser/contactform/internal/app/features/page"
	"github.com/dalemusser/contactform/internal/dom"
	"github.com/dalemusser/contactform/metrics"
	"github.com/dalemusser/contactform/pantry/health"
	"github.com/dalemusser/contactform/pantry/pprof"
	"github.com/dalemusser/contactform/pantry/version"
	"github.com/dalemusser/contactform/router"
	"go.uber.org/zap"
)

// LoadConfig loads the core config and the app keys.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, vals, err := config.Load(logger, appKeys...)
	if err != nil {
		return nil, AppConfig{}, err
	}
	return coreCfg, appConfigFrom(vals), nil
}

// Prepare loads the host page and, when asked, starts watching it.
func Prepare(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (Deps, error) {
	doc, err := page.Load(logger, appCfg.PageFile)
	if err != nil {
		return Deps{}, fmt.Errorf("load page: %w", err)
	}
	logger.Info("page loaded", append(version.Fields(), zap.String("page_file", appCfg.PageFile))...)
	deps := Deps{Pages: page.NewStore(doc), Status: &ComponentStatus{}}
	deps.Status.Probe(doc, logger)

	if appCfg.WatchPage && appCfg.PageFile != "" {
		err := page.Watch(ctx, appCfg.PageFile, logger, func(d *dom.Document) {
			deps.Pages.Replace(d)
			deps.Status.Probe(d, logger)
		})
		if err != nil {
			return Deps{}, err
		}
		logger.Info("watching page", zap.String("path", appCfg.PageFile))
	}
	return deps, nil
}

// BuildHandler mounts every route on the standard router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps Deps, logger *zap.Logger) (http.Handler, error) {
	httputil.SetLogger(logger)
	r := router.New(coreCfg, logger)

	page.NewHandler(deps.Pages).Mount(r)
	contact.NewHandler(deps.Pages, logger, appCfg.WSOriginPatterns).Mount(r)
	r.Method(http.MethodGet, "/clock", clock.NewHandler(appCfg.ClockInterval, logger))

	health.Mount(r, deps.Status.Checks(), logger)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Method(http.MethodGet, "/version", version.Handler())
	if coreCfg.Env == "dev" {
		pprof.Mount(r)
	}

	return r, nil
}

// Hooks wires the service into the app lifecycle.
var Hooks = app.Hooks[AppConfig, Deps]{
	Name:         "contactform",
	LoadConfig:   LoadConfig,
	Prepare:      Prepare,
	BuildHandler: BuildHandler,
}
