// Package transport exposes the A2A server over HTTP: the JSON-RPC endpoint
// with SSE streaming, the agent-card endpoint, TLS, and per-client
// throttling.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/gate4ai/a2a/shared/config"
)

// StartHTTPServer starts the HTTP/HTTPS server for the given handler.
// It returns the server instance and a channel that signals listener errors
// after startup. An immediate error is returned if setup fails before the
// listener starts.
func StartHTTPServer(ctx context.Context, logger *zap.Logger, cfg *config.Config, mux http.Handler) (*http.Server, <-chan error, error) {
	if logger == nil {
		return nil, nil, errors.New("logger cannot be nil")
	}
	if cfg == nil {
		return nil, nil, errors.New("config cannot be nil")
	}
	if mux == nil {
		return nil, nil, errors.New("http handler (mux) cannot be nil")
	}

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams have no inherent deadline
		IdleTimeout:  90 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	var certFile, keyFile string
	isACME := false
	if cfg.SSL.Enabled {
		if cfg.SSL.Mode == "acme" {
			isACME = true
			cacheDir := cfg.SSL.AcmeCacheDir
			if cacheDir == "" {
				cacheDir = "./.autocert-cache"
			}
			if err := os.MkdirAll(cacheDir, 0700); err != nil {
				return nil, nil, fmt.Errorf("failed to create ACME cache directory %s: %w", cacheDir, err)
			}
			certManager := autocert.Manager{
				Prompt:     autocert.AcceptTOS,
				HostPolicy: autocert.HostWhitelist(cfg.SSL.AcmeDomains...),
				Email:      cfg.SSL.AcmeEmail,
				Cache:      autocert.DirCache(cacheDir),
			}
			server.TLSConfig = certManager.TLSConfig()

			// ACME needs the HTTP-01 challenge listener.
			go func() {
				challengeServer := &http.Server{
					Addr:    ":80",
					Handler: certManager.HTTPHandler(nil),
				}
				logger.Info("Starting ACME HTTP challenge listener", zap.String("addr", ":80"))
				if err := challengeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("ACME HTTP challenge listener error", zap.Error(err))
				}
			}()
		} else {
			certFile = cfg.SSL.CertFile
			keyFile = cfg.SSL.KeyFile
			server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	}

	listenerErrChan := make(chan error, 1)
	go func() {
		defer close(listenerErrChan)

		var err error
		if cfg.SSL.Enabled {
			logger.Info("Starting HTTPS server",
				zap.String("addr", server.Addr), zap.Bool("isACME", isACME))
			if isACME {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServeTLS(certFile, keyFile)
			}
		} else {
			logger.Info("Starting HTTP server", zap.String("addr", server.Addr))
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server listener error", zap.Error(err))
			listenerErrChan <- err
		} else {
			logger.Info("HTTP server listener stopped gracefully")
		}
	}()

	return server, listenerErrChan, nil
}

// ShutdownHTTPServer attempts a graceful shutdown of the HTTP server.
func ShutdownHTTPServer(ctx context.Context, logger *zap.Logger, server *http.Server) {
	if server == nil {
		logger.Warn("Shutdown requested but server instance is nil")
		return
	}
	logger.Info("Shutting down HTTP server")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("HTTP server shut down gracefully")
	}
}
