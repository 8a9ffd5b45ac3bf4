package main

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"goa.design/clue/log"

	"github.com/adliye/lexgate/config"
)

const shutdownGrace = 10 * time.Second

// serveHTTP exposes the MCP server over the streamable HTTP transport with
// the auth and CORS collaborators in front. Blocks until ctx is canceled.
func serveHTTP(ctx context.Context, cfg *config.Config, srv *mcp.Server, addr string) {
	if cfg.EnableAuth && cfg.AuthToken == "" {
		log.Fatal(ctx, fmt.Errorf("%s is set but %s is empty", config.EnvEnableAuth, config.EnvAuthToken))
	}

	var h http.Handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
	h = withAuth(cfg, h)
	h = withCORS(cfg.AllowedOrigins, h)
	server := &http.Server{Addr: addr, Handler: h}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		server.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	log.Printf(ctx, "serving MCP on http://%s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(ctx, err)
	}
	log.Printf(ctx, "exited")
}

// withAuth requires the configured bearer token on every request. The tools
// never see the credential; auth lives entirely at the transport edge.
func withAuth(cfg *config.Config, next http.Handler) http.Handler {
	if !cfg.EnableAuth {
		return next
	}
	want := []byte("Bearer " + cfg.AuthToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withCORS reflects the origin back for the configured allow-list and
// answers preflight requests. No origins configured means no CORS headers.
func withCORS(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		return next
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Mcp-Session-Id")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
