// sensor Cloud Function pokes one job sensor per HTTP request.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/dwsmith1983/jobsensor/internal/sensorapi"
)

var (
	deps     *sensorapi.Deps
	depsOnce sync.Once
	depsErr  error
)

func init() {
	functions.HTTP("Sensor", handleHTTP)
}

func getDeps() (*sensorapi.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = sensorapi.Init(context.Background())
	})
	return deps, depsErr
}

func handleHTTP(w http.ResponseWriter, r *http.Request) {
	d, err := getDeps()
	if err != nil {
		http.Error(w, fmt.Sprintf("init error: %v", err), http.StatusInternalServerError)
		return
	}
	serve(w, r, d)
}

func serve(w http.ResponseWriter, r *http.Request, d *sensorapi.Deps) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sensorapi.PokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	resp, err := sensorapi.HandlePoke(r.Context(), d, req)
	d.Flush(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("handler error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		d.Logger.Error("writing response", "error", err)
	}
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("failed to start functions framework", "error", err)
		os.Exit(1)
	}
}
