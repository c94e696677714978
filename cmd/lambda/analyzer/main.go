// analyzer Lambda runs one compliance analysis per EventBridge schedule tick.
package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	intlambda "github.com/dwsmith1983/guardian/internal/lambda"
)

var version = "dev"

var (
	deps     *intlambda.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*intlambda.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = intlambda.Init(context.Background(), version)
	})
	return deps, depsErr
}

func handler(ctx context.Context, event events.EventBridgeEvent) (intlambda.AnalyzeResponse, error) {
	d, err := getDeps()
	if err != nil {
		return intlambda.AnalyzeResponse{}, err
	}
	return intlambda.HandleScheduled(ctx, d, event)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
