package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/dalemusser/contactform/config"
	"go.uber.org/zap"
)

func TestRun_StopsOnHookErrors(t *testing.T) {
	boom := errors.New("boom")
	okConfig := func(*zap.Logger) (*config.CoreConfig, struct{}, error) {
		return &config.CoreConfig{Env: "dev", LogLevel: "error"}, struct{}{}, nil
	}

	tests := []struct {
		name  string
		hooks Hooks[struct{}, int]
	}{
		{
			name: "config",
			hooks: Hooks[struct{}, int]{
				LoadConfig: func(*zap.Logger) (*config.CoreConfig, struct{}, error) { return nil, struct{}{}, boom },
			},
		},
		{
			name: "prepare",
			hooks: Hooks[struct{}, int]{
				LoadConfig: okConfig,
				Prepare: func(context.Context, *config.CoreConfig, struct{}, *zap.Logger) (int, error) {
					return 0, boom
				},
			},
		},
		{
			name: "handler",
			hooks: Hooks[struct{}, int]{
				LoadConfig: okConfig,
				BuildHandler: func(*config.CoreConfig, struct{}, int, *zap.Logger) (http.Handler, error) {
					return nil, boom
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.hooks.Name = "test"
			if err := Run(context.Background(), tt.hooks); !errors.Is(err, boom) {
				t.Errorf("Run = %v, want %v", err, boom)
			}
		})
	}
}

func TestRun_BadLogLevel(t *testing.T) {
	hooks := Hooks[struct{}, int]{
		LoadConfig: func(*zap.Logger) (*config.CoreConfig, struct{}, error) {
			return &config.CoreConfig{Env: "dev", LogLevel: "loud"}, struct{}{}, nil
		},
	}
	if err := Run(context.Background(), hooks); err == nil {
		t.Error("Run should fail to build a logger for an unknown level")
	}
}
