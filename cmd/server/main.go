package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"qna-agents/internal/app"
	"qna-agents/internal/httputil"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Log.Info("server listening", "addr", srv.Addr, "provider", deps.Config.InferenceProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", createSessionHandler(deps))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getSessionHandler(deps))
			r.Delete("/", deleteSessionHandler(deps))
			r.Put("/paragraph", setParagraphHandler(deps))
			r.Post("/paragraph/upload", uploadParagraphHandler(deps))
			r.Put("/question", setQuestionHandler(deps))
			r.Post("/predict", predictHandler(deps))
			r.Get("/answers", answersHandler(deps))
			r.Get("/history", historyHandler(deps))
			r.Get("/history/{predictionID}", predictionHandler(deps))
		})
	})
	r.Delete("/api/cache", flushCacheHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	return r
}
