// sensor Lambda pokes one job sensor per invocation. A Step Functions wait loop
// (or any other orchestrator) calls it until the reported state is terminal.
package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/dwsmith1983/jobsensor/internal/sensorapi"
)

var (
	deps     *sensorapi.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*sensorapi.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = sensorapi.Init(context.Background())
	})
	return deps, depsErr
}

func handler(ctx context.Context, req sensorapi.PokeRequest) (sensorapi.PokeResponse, error) {
	d, err := getDeps()
	if err != nil {
		return sensorapi.PokeResponse{}, err
	}
	resp, err := sensorapi.HandlePoke(ctx, d, req)
	d.Flush(ctx)
	return resp, err
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
