// Package api implements the REST API server with WebSocket support.
package api

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/EliasDerHai/limelight/core/errors"
	"github.com/EliasDerHai/limelight/internal/logging"
	"github.com/EliasDerHai/limelight/internal/server"
	"github.com/EliasDerHai/limelight/internal/store"
)

// ServerStore is the document store backing all handlers. Set by Start.
var ServerStore *store.Store

// Requests slower than this are logged as outliers.
const slowRequestThreshold = time.Second

// Start starts the API server on the configured port.
func Start(cfg Config) error {
	ServerConfig = cfg

	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return errors.NewValidation("tls", "cert or key file not specified")
		}
		if _, err := os.Stat(cfg.TLS.CertFile); err != nil {
			return errors.NewIO("stat", cfg.TLS.CertFile, err)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); err != nil {
			return errors.NewIO("stat", cfg.TLS.KeyFile, err)
		}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	ServerStore = st

	GlobalHub = NewHub()
	go GlobalHub.Run()

	mux := setupRoutes()

	protocol := "http"
	wsProtocol := "ws"
	if cfg.TLS.Enabled {
		protocol = "https"
		wsProtocol = "wss"
	}

	logging.ServerStartup("rest_api", protocol, cfg.Port,
		"websocket_protocol", wsProtocol,
		"db_path", server.AbsPath(cfg.DBPath),
		"driver", store.Driver().Name)

	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), mux)

	if cfg.Auth.Enabled {
		handler = AuthMiddleware(cfg.Auth, handler)
		logging.SecurityEvent("authentication_enabled", "api")
	} else {
		logging.SecurityEvent("authentication_disabled", "api")
	}

	if cfg.RateLimitRequests > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 10
		}
		limiter := NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         burst,
		})
		handler = limiter.Middleware(handler)
		logging.Info("rate limiting enabled",
			"requests_per_minute", cfg.RateLimitRequests,
			"burst", burst)
	}

	if len(cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_restricted", "api", "origins", cfg.AllowedOrigins)
	} else {
		logging.SecurityEvent("cors_open", "api")
	}
	handler = server.CORSMiddleware(server.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}, handler)

	handler = server.SlowRequestMiddleware(slowRequestThreshold, handler)
	handler = logging.CombinedMiddleware(handler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	if cfg.TLS.Enabled {
		return http.ListenAndServeTLS(addr, cfg.TLS.CertFile, cfg.TLS.KeyFile, handler)
	}
	return http.ListenAndServe(addr, handler)
}

func setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/highlight", handleHighlight)
	mux.HandleFunc("/documents", handleDocuments)
	mux.HandleFunc("/documents/import", handleImport)
	mux.HandleFunc("/documents/", handleDocumentByID)
	mux.HandleFunc("/formats", handleFormats)
	mux.HandleFunc("/ws", handleWebSocket)
	return mux
}
