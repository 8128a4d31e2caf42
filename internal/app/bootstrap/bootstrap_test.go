package bootstrap

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/pantry/health"
	ptest "github.com/dalemusser/contactform/pantry/testing"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, appCfg AppConfig) (*ptest.Server, Deps) {
	t.Helper()
	if appCfg.ClockInterval == 0 {
		appCfg.ClockInterval = time.Second
	}
	coreCfg := &config.CoreConfig{}
	deps, err := Prepare(ptest.Context(t), coreCfg, appCfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	h, err := BuildHandler(coreCfg, appCfg, deps, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	return ptest.NewServer(t, h), deps
}

func TestAppConfigFrom(t *testing.T) {
	got := appConfigFrom(config.AppConfigValues{
		"page_file":          "page.html",
		"watch_page":         "true",
		"clock_interval":     "250ms",
		"ws_origin_patterns": []string{"example.com"},
	})
	want := AppConfig{
		PageFile:         "page.html",
		WatchPage:        true,
		ClockInterval:    250 * time.Millisecond,
		WSOriginPatterns: []string{"example.com"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AppConfig mismatch (-want +got):\n%s", diff)
	}

	if d := appConfigFrom(config.AppConfigValues{}).ClockInterval; d != time.Second {
		t.Errorf("default clock interval = %v", d)
	}
}

func TestRoutes_StockPage(t *testing.T) {
	srv, _ := newTestServer(t, AppConfig{})

	srv.Get("/").Do().
		StatusOK().
		HeaderContains("Content-Type", "text/html").
		BodyContains(`id="contactForm"`).
		BodyContains(`src="/static/contact.js"`)

	srv.Get("/static/contact.js").Do().
		StatusOK().
		HeaderContains("Content-Type", "javascript").
		BodyContains("/ws/contact")

	var h health.Response
	srv.Get("/health").Do().StatusOK().JSON(&h)
	if diff := cmp.Diff(health.Response{Status: "ok", Checks: map[string]string{"contact": "ok", "clock": "ok"}}, h); diff != "" {
		t.Errorf("health mismatch (-want +got):\n%s", diff)
	}

	srv.Post("/api/contact/validate").
		JSON(map[string]string{"name": "Jane Doe", "email": "jane@example.com", "subject": "Hi", "message": "Hello there!"}).
		Do().StatusOK().BodyContains(`"valid":true`)

	srv.Get("/metrics").Do().StatusOK()
	srv.Get("/version").Do().StatusOK().BodyContains(`"go_version"`)
	srv.Get("/nope").Do().Status(http.StatusNotFound).ContentTypeJSON()
}

func TestRoutes_PageFileWithoutForm(t *testing.T) {
	path := ptest.TempFile(t, "page.html", `<html><body><span id="user-time"></span></body></html>`)
	srv, _ := newTestServer(t, AppConfig{PageFile: path})

	srv.Get("/").Do().StatusOK().BodyContains(`<span id="user-time">`)
	srv.Post("/api/contact/validate").JSON(map[string]string{}).Do().
		Status(http.StatusServiceUnavailable)

	var h health.Response
	srv.Get("/health").Do().Status(http.StatusServiceUnavailable).JSON(&h)
	if h.Checks["clock"] != "ok" || h.Checks["contact"] == "ok" {
		t.Errorf("checks = %v", h.Checks)
	}
}

func TestRoutes_ProfilingOnlyInDev(t *testing.T) {
	for env, want := range map[string]int{"dev": http.StatusOK, "prod": http.StatusNotFound} {
		appCfg := AppConfig{ClockInterval: time.Second}
		coreCfg := &config.CoreConfig{Env: env}
		deps, err := Prepare(ptest.Context(t), coreCfg, appCfg, zap.NewNop())
		if err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		h, err := BuildHandler(coreCfg, appCfg, deps, zap.NewNop())
		if err != nil {
			t.Fatalf("BuildHandler: %v", err)
		}
		ptest.NewServer(t, h).Get("/debug/pprof/").Do().Status(want)
	}
}

func TestPrepare_MissingPageFile(t *testing.T) {
	_, err := Prepare(context.Background(), &config.CoreConfig{}, AppConfig{PageFile: "/nonexistent/page.html"}, zap.NewNop())
	if err == nil {
		t.Error("Prepare should fail for a missing page file")
	}
}

func TestPrepare_WatchReprobes(t *testing.T) {
	path := ptest.TempFile(t, "page.html", `<p>nothing bound</p>`)
	_, deps := newTestServer(t, AppConfig{PageFile: path, WatchPage: true})

	checks := deps.Status.Checks()
	if checks["clock"](context.Background()) == nil {
		t.Fatal("clock should start disabled")
	}

	if err := os.WriteFile(path, []byte(`<span id="user-time"></span>`), 0o644); err != nil {
		t.Fatal(err)
	}
	ptest.Eventually(t, func() bool {
		return checks["clock"](context.Background()) == nil
	}, 5*time.Second, 20*time.Millisecond)

	if doc := deps.Pages.Session(); doc.GetElementByID("user-time") == nil {
		t.Error("store not updated after reload")
	}
}
