package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"qna-agents/internal/app"
	"qna-agents/internal/httputil"
	"qna-agents/internal/inference"
)

func main() {
	deps, err := app.BuildWorker()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()
	deps.Log.Info("inference worker starting", "provider", deps.Config.InferenceProvider, "subject", deps.Config.InferenceSubject)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Answer find-answers and readiness requests
	g.Go(func() error {
		return inference.Serve(ctx, deps.Queue, deps.Config.InferenceSubject, deps.Gateway, deps.Log)
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Config.HealthPort, deps.Log, "worker")
	})

	// Wait for either to fail
	if err := g.Wait(); err != nil {
		deps.Log.Error("inference worker stopped", "err", err)
	}
}
