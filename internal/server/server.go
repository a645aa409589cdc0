// Package server provides HTTP server initialization and lifecycle
// management for the labeld classification API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/dmfarley/labeld/internal/config"
	"github.com/dmfarley/labeld/internal/embed"
	"github.com/dmfarley/labeld/internal/engine"
	"github.com/dmfarley/labeld/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server.
// It returns the actual address being listened on (useful for testing
// with port 0) and the WebSocketHub so callers can stop it on shutdown.
func Start(ctx context.Context, cfg *config.Config, eng *engine.Engine, embedder embed.Provider) (string, *handlers.WebSocketHub, error) {
	mux := http.NewServeMux()

	wsHub := handlers.NewWebSocketHub()
	go wsHub.Run()

	rateLimiter := handlers.NewRateLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst)

	api := handlers.NewAPI(eng, embedder, wsHub)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/classify", api.Classify)
	apiMux.HandleFunc("POST /api/entries/{id}/reclassify", api.ReclassifyEntry)
	apiMux.HandleFunc("DELETE /api/entries/{id}", api.DeleteEntry)
	apiMux.HandleFunc("GET /api/labels", api.ListLabels)
	apiMux.HandleFunc("POST /api/labels", api.CreateLabel)
	apiMux.HandleFunc("GET /api/labels/{name}", api.GetLabel)
	apiMux.HandleFunc("DELETE /api/labels/{name}", api.DeleteLabel)
	apiMux.HandleFunc("GET /api/stats", api.GetStats)

	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// Health endpoint, no auth required, used by monitoring
	mux.HandleFunc("GET /health", api.Health)

	// WebSocket endpoint (no auth required, origin validation handles security)
	mux.Handle("/ws", wsHub)

	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		wsHub.Stop()
		return "", nil, fmt.Errorf("server: listen on %s: %w", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub, nil
}
