// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Version is reported by /health and the version command.
var Version = "dev"

// NewRouter returns the operational HTTP handler.
func (a *App) NewRouter() http.Handler {
	r := mux.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	r.HandleFunc("/health", a.healthHandler).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	return c.Handler(r)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	components := map[string]bool{"attempt_ledger": true}
	if err := a.Ledger.Ping(ctx); err != nil {
		components["attempt_ledger"] = false
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	health := map[string]interface{}{
		"status":     status,
		"service":    "vocalbridge-orchestrator",
		"version":    Version,
		"timestamp":  time.Now().UTC(),
		"components": components,
		"providers":  a.Registry.Names(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		a.log.Error("", "", "failed to encode health response", map[string]interface{}{"error": err.Error()})
	}
}

// Serve runs the HTTP surface and the idempotency sweeper until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Port),
		Handler:           a.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.Sweeper.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.Sweeper.Stop(stopCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("", "", "orchestrator listening", map[string]interface{}{"port": a.Config.Port})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.log.Info("", "", "shutting down", nil)
	return srv.Shutdown(shutdownCtx)
}
