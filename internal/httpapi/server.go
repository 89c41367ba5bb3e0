// Package httpapi exposes the Dispatcher as a JSON-RPC-over-HTTP
// server: build a router, wrap it in middleware, run it under an
// errgroup so the listen goroutine and the shutdown goroutine share one
// error channel.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/neilotoole/errgroup"
	"go.uber.org/zap"

	"github.com/aegisnetwork/aegis-rpc/internal/dispatcher"
	"github.com/aegisnetwork/aegis-rpc/internal/headers"
	"github.com/aegisnetwork/aegis-rpc/internal/rpctypes"
)

// ReadHeaderTimeout bounds how long the server waits for request headers
// from a slow or stalled client.
const ReadHeaderTimeout = time.Minute

// maxRequestBytes caps a single JSON-RPC request body; an AI agent
// should never need more than this for any of the methods this proxy
// recognizes.
const maxRequestBytes = 5 << 20

// NewRouter builds the HTTP router for d: a single POST "/" endpoint
// speaking JSON-RPC 2.0, plus a liveness endpoint for operators.
func NewRouter(d *dispatcher.Dispatcher, log *zap.Logger) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", rpcHandler(d, log)).Methods(http.MethodPost)
	router.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	return corsMiddleware(loggingMiddleware(log, router))
}

func rpcHandler(d *dispatcher.Dispatcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		var req rpctypes.Request
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, rpctypes.NewErrorResponse(nil, rpctypes.WrapErr(rpctypes.CodeParseError, "malformed JSON-RPC request", err)))
			return
		}

		resp := d.Dispatch(headers.ContextWithHeaders(r), &req)
		writeJSON(w, resp)
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, resp *rpctypes.Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Serve runs an HTTP server for handler on addr, supervised by an
// errgroup so it shuts down cleanly when ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("aegis proxy listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
