// config/appconfig.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AppKey declares one application setting. It is read from the config
// file under Name, from the environment as CONTACTFORM_<NAME>, and from
// the --<name> flag.
type AppKey struct {
	Name string

	// Default is the value when nothing else sets the key. Supported
	// types: string, int, int64, bool, []string, time.Duration.
	Default any

	Desc string
}

// AppConfigValues holds the loaded application settings by key name.
type AppConfigValues map[string]any

// String returns a string value or "".
func (a AppConfigValues) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Int returns an int value or 0.
func (a AppConfigValues) Int(key string) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Bool returns a bool value or false. String values from the environment
// are parsed.
func (a AppConfigValues) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "yes", "on":
			return true
		}
	}
	return false
}

// StringSlice returns a []string value or nil.
func (a AppConfigValues) StringSlice(key string) []string {
	if v, ok := a[key].([]string); ok {
		return v
	}
	return nil
}

// Duration parses a duration value: "1s", "500ms", or a number of seconds.
// It returns def when the key is unset or invalid.
func (a AppConfigValues) Duration(key string, def time.Duration) time.Duration {
	raw := a[key]
	if raw == nil {
		return def
	}
	d, err := parseDurationFlexible(raw, def)
	if err != nil {
		return def
	}
	return d
}

func registerAppFlags(fs *pflag.FlagSet, keys []AppKey) error {
	for _, key := range keys {
		if fs.Lookup(key.Name) != nil {
			return fmt.Errorf("config key %q conflicts with existing flag", key.Name)
		}
		switch d := key.Default.(type) {
		case string:
			fs.String(key.Name, d, key.Desc)
		case int:
			fs.Int(key.Name, d, key.Desc)
		case int64:
			fs.Int64(key.Name, d, key.Desc)
		case bool:
			fs.Bool(key.Name, d, key.Desc)
		case time.Duration:
			fs.String(key.Name, d.String(), key.Desc)
		case []string:
			fs.String(key.Name, "", key.Desc+" (JSON array)")
		default:
			return fmt.Errorf("config key %q has unsupported default type %T", key.Name, key.Default)
		}
	}
	return nil
}

// loadAppConfig resolves keys with the same precedence as the core config.
// v already holds the merged config files.
func loadAppConfig(logger *zap.Logger, v *viper.Viper, fs *pflag.FlagSet, keys []AppKey) (AppConfigValues, error) {
	result := make(AppConfigValues, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	for _, key := range keys {
		v.SetDefault(key.Name, key.Default)
		_ = v.BindEnv(key.Name)
		if f := fs.Lookup(key.Name); f != nil && f.Changed {
			_ = v.BindPFlag(key.Name, f)
		}
	}

	for _, key := range keys {
		if _, ok := key.Default.([]string); ok {
			if err := normalizeListKeys(logger, v, key.Name); err != nil {
				return nil, err
			}
			result[key.Name] = v.GetStringSlice(key.Name)
			continue
		}
		result[key.Name] = v.Get(key.Name)
	}

	if logger != nil {
		fields := make([]zap.Field, 0, len(keys))
		for _, key := range keys {
			if isSecretKey(key.Name) {
				fields = append(fields, zap.String(key.Name, "[REDACTED]"))
				continue
			}
			fields = append(fields, zap.Any(key.Name, result[key.Name]))
		}
		logger.Info("app config loaded", fields...)
	}
	return result, nil
}

func isSecretKey(name string) bool {
	name = strings.ToLower(name)
	for _, s := range []string{"key", "secret", "password", "token"} {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}
