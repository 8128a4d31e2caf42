// server/server.go

// Package server runs the HTTP(S) listeners and shuts them down gracefully
// when the context ends.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dalemusser/contactform/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// WithShutdownSignals returns a context canceled on SIGINT or SIGTERM.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			if logger != nil {
				logger.Info("shutdown signal received", zap.Any("signal", sig))
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// ListenAndServeWithContext serves handler according to cfg and blocks
// until ctx is canceled or a server fails. With HTTPS enabled a second
// server on :80 redirects to HTTPS and, for Let's Encrypt http-01, answers
// the challenge. dns-01 publishes the challenge in Route 53 instead.
func ListenAndServeWithContext(ctx context.Context, cfg *config.CoreConfig, handler http.Handler, logger *zap.Logger) error {
	if cfg == nil {
		return errors.New("server: cfg is nil")
	}
	if handler == nil {
		return errors.New("server: handler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := newHTTPServer(cfg, handler, logger)

	if !cfg.HTTP.UseHTTPS {
		addr := ":" + strconv.Itoa(cfg.HTTP.HTTPPort)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen http %s: %w", addr, err)
		}
		logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		return serve(ctx, cfg, srv, ln, nil, nil, logger)
	}

	var (
		tlsCfg  *tls.Config
		aux     *http.Server
		prewarm func(context.Context) error
		err     error
	)
	if cfg.TLS.UseLetsEncrypt {
		if tlsCfg, aux, prewarm, err = letsEncrypt(ctx, cfg, logger); err != nil {
			return err
		}
	} else if tlsCfg, aux, err = manualTLS(cfg, logger); err != nil {
		return err
	}
	srv.TLSConfig = tlsCfg

	// The :80 server comes up first so ACME challenges can be answered
	// while the certificate is fetched.
	auxErr := startAux(aux, logger)
	if prewarm != nil {
		if err := prewarm(ctx); err != nil {
			_ = aux.Close()
			return err
		}
	}

	addr := ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
	base, err := net.Listen("tcp", addr)
	if err != nil {
		_ = aux.Close()
		return fmt.Errorf("listen https %s: %w", addr, err)
	}
	logger.Info("HTTPS server listening",
		zap.String("addr", addr),
		zap.Bool("lets_encrypt", cfg.TLS.UseLetsEncrypt),
		zap.String("challenge", cfg.TLS.LetsEncryptChallenge),
		zap.String("domain", cfg.TLS.Domain))
	return serve(ctx, cfg, srv, tls.NewListener(base, tlsCfg), aux, auxErr, logger)
}

func startAux(aux *http.Server, logger *zap.Logger) chan error {
	ch := make(chan error, 1)
	go func() { ch <- ignoreClosed(aux.ListenAndServe()) }()
	logger.Info("redirect server listening", zap.String("addr", aux.Addr))
	return ch
}

func newHTTPServer(cfg *config.CoreConfig, handler http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	}
	return srv
}

// serve runs srv on ln until ctx ends or a server fails. aux, when non-nil,
// is already running and reports on auxErr; a nil auxErr is never selected.
func serve(ctx context.Context, cfg *config.CoreConfig, srv *http.Server, ln net.Listener, aux *http.Server, auxErr chan error, logger *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- ignoreClosed(srv.Serve(ln)) }()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if aux != nil {
				_ = aux.Shutdown(shutdownCtx)
			}
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			logger.Info("server stopped gracefully")
			return nil

		case err := <-serveErr:
			if aux != nil {
				_ = aux.Close()
			}
			if err != nil {
				return fmt.Errorf("primary server error: %w", err)
			}
			return nil

		case err := <-auxErr:
			if err != nil {
				_ = srv.Close()
				return fmt.Errorf("redirect server error: %w", err)
			}
			aux, auxErr = nil, nil
		}
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
