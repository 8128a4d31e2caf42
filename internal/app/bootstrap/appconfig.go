// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/internal/app/features/clock"
)

// AppConfig holds the service's own settings.
type AppConfig struct {
	// PageFile is an HTML page to serve instead of the built-in one.
	PageFile string
	// WatchPage reloads PageFile when it changes on disk.
	WatchPage bool
	// ClockInterval is the period of the clock event stream.
	ClockInterval time.Duration
	// WSOriginPatterns are extra origins allowed to open live sessions.
	WSOriginPatterns []string
}

var appKeys = []config.AppKey{
	{Name: "page_file", Default: "", Desc: "HTML host page to serve instead of the built-in contact page"},
	{Name: "watch_page", Default: false, Desc: "Reload page_file when it changes"},
	{Name: "clock_interval", Default: clock.DefaultPeriod, Desc: "Clock refresh period (e.g. 1s, 500ms)"},
	{Name: "ws_origin_patterns", Default: []string{}, Desc: "Extra origins allowed to open /ws/contact"},
}

func appConfigFrom(vals config.AppConfigValues) AppConfig {
	return AppConfig{
		PageFile:         vals.String("page_file"),
		WatchPage:        vals.Bool("watch_page"),
		ClockInterval:    vals.Duration("clock_interval", clock.DefaultPeriod),
		WSOriginPatterns: vals.StringSlice("ws_origin_patterns"),
	}
}
