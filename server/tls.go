// server/tls.go
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/dalemusser/contactform/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

// letsEncrypt builds the ACME TLS config, the :80 server and a prewarm
// func. With http-01 the :80 server answers challenges and prewarm only
// warns; with dns-01 it just redirects and prewarm must succeed.
func letsEncrypt(ctx context.Context, cfg *config.CoreConfig, logger *zap.Logger) (*tls.Config, *http.Server, func(context.Context) error, error) {
	if cfg.TLS.LetsEncryptChallenge == config.ChallengeDNS01 {
		records, err := NewRoute53Records(ctx, cfg.TLS, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		m, err := NewDNS01Manager(cfg.TLS.Domain, cfg.TLS.LetsEncryptEmail, cfg.TLS.LetsEncryptCacheDir,
			cfg.TLS.ACMEDirectoryURL, records, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		prewarm := func(ctx context.Context) error {
			if err := m.PreWarm(ctx); err != nil {
				return fmt.Errorf("dns-01 pre-warm: %w", err)
			}
			go m.RenewLoop(ctx)
			return nil
		}
		return &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: m.GetCertificate,
		}, redirectServer(cfg, httpRedirectHandler()), prewarm, nil
	}

	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.TLS.Domain),
		Cache:      autocert.DirCache(cfg.TLS.LetsEncryptCacheDir),
		Email:      cfg.TLS.LetsEncryptEmail,
	}
	prewarm := func(ctx context.Context) error {
		if err := waitForCert(ctx, m, cfg.TLS.Domain, 60*time.Second); err != nil {
			logger.Warn("autocert pre-warm failed; first HTTPS hits may see TLS errors", zap.Error(err))
		}
		return nil
	}
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: m.GetCertificate,
	}, redirectServer(cfg, m.HTTPHandler(httpRedirectHandler())), prewarm, nil
}

// manualTLS loads the configured certificate pair.
func manualTLS(cfg *config.CoreConfig, logger *zap.Logger) (*tls.Config, *http.Server, error) {
	if err := validateTLSFiles(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
		if _, weak := err.(*permissiveKeyError); !weak {
			return nil, nil, err
		}
		if cfg.Env == "prod" {
			return nil, nil, fmt.Errorf("production security: %w", err)
		}
		logger.Warn("TLS key file security warning (would block in prod)", zap.Error(err))
	}

	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load TLS cert/key: %w", err)
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}, redirectServer(cfg, httpRedirectHandler()), nil
}

func redirectServer(cfg *config.CoreConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":80",
		Handler:           h,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
}

type permissiveKeyError struct {
	file string
	perm os.FileMode
}

func (e *permissiveKeyError) Error() string {
	return fmt.Sprintf("TLS key file %s has overly permissive permissions %o (recommended: 0600)", e.file, e.perm)
}

// validateTLSFiles checks that both files exist and are regular files. A
// key readable by group or others yields a *permissiveKeyError.
func validateTLSFiles(certFile, keyFile string) error {
	for _, f := range []struct{ kind, path string }{{"certificate", certFile}, {"key", keyFile}} {
		info, err := os.Stat(f.path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("TLS %s file does not exist: %s", f.kind, f.path)
			}
			return fmt.Errorf("cannot access TLS %s file %s: %w", f.kind, f.path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("TLS %s path is a directory, not a file: %s", f.kind, f.path)
		}
		// permission bits mean nothing on windows
		if f.kind == "key" && runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
			return &permissiveKeyError{file: f.path, perm: info.Mode().Perm()}
		}
	}
	return nil
}

// waitForCert polls autocert until it holds a certificate for host, the
// timeout passes, or ctx ends.
func waitForCert(ctx context.Context, m *autocert.Manager, host string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: host})
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for cert for %q: %w (last error: %v)", host, ctx.Err(), err)
		case <-t.C:
		}
	}
}
