package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"qna-agents/internal/cache"
	"qna-agents/internal/config"
	"qna-agents/internal/inference"
	"qna-agents/internal/llm"
	"qna-agents/internal/logger"
	"qna-agents/internal/onnxqa"
	"qna-agents/internal/queue"
	"qna-agents/internal/session"
	"qna-agents/internal/store"
)

const readyBackoff = 200 * time.Millisecond

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Gateway  inference.Gateway
	Cache    cache.Cache
	Sessions *session.Manager
	// Store and Queue are nil when not configured.
	Store store.Store
	Queue queue.Queue

	closers []func() error
}

// Close releases everything Build opened, in reverse order.
func (d Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Log.Warn("close failed", "err", err)
		}
	}
}

// Build loads env, config, and shared components for the HTTP server.
func Build() (Deps, error) {
	return BuildWithLogOutput(os.Stdout)
}

// BuildWithLogOutput is Build with logs sent to w.
func BuildWithLogOutput(w io.Writer) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	deps := Deps{
		Config: cfg,
		Log:    logger.NewWithWriter(w, cfg.LogLevel, cfg.LogFormat),
	}

	if cfg.InferenceProvider == "remote" {
		q, err := buildQueue(cfg, deps.Log)
		if err != nil {
			return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
		}
		deps.Queue = q
		deps.closers = append(deps.closers, func() error { q.Close(); return nil })
	}

	if err := deps.buildGateway(); err != nil {
		deps.Close()
		return Deps{}, err
	}

	st, err := buildStore(cfg, deps.Log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	opts := session.Options{Log: deps.Log}
	if st != nil {
		deps.Store = st
		deps.closers = append(deps.closers, st.Close)
		opts.Recorder = st
	}
	deps.Sessions = session.NewManager(deps.Gateway, opts, session.Limits{
		MaxSessions: cfg.MaxSessions,
		IdleTTL:     time.Duration(cfg.SessionTTL) * time.Second,
	})
	return deps, nil
}

// BuildWorker loads the components of a remote inference worker. The worker
// always runs a local backend and always needs a queue.
func BuildWorker() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	if cfg.InferenceProvider == "remote" {
		return Deps{}, fmt.Errorf("worker needs a local INFERENCE_PROVIDER (openai or onnx), got remote")
	}
	deps := Deps{
		Config: cfg,
		Log:    logger.New(cfg.LogLevel, cfg.LogFormat),
	}
	q, err := buildQueue(cfg, deps.Log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q
	deps.closers = append(deps.closers, func() error { q.Close(); return nil })

	if err := deps.buildGateway(); err != nil {
		deps.Close()
		return Deps{}, err
	}
	return deps, nil
}

func (d *Deps) buildGateway() error {
	loader, err := buildLoader(d.Config, d.Queue, d.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize inference: %w", err)
	}
	lazy := inference.NewLazyGateway(loader, d.Log)
	d.closers = append(d.closers, lazy.Close)

	c, err := buildCache(d.Config, d.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	d.Cache = c
	d.closers = append(d.closers, c.Close)
	ttl := time.Duration(d.Config.CacheTTL) * time.Second
	d.Gateway = inference.WithCache(lazy, c, ttl, d.Log)
	return nil
}

func buildLoader(cfg config.Config, q queue.Queue, log *slog.Logger) (inference.Loader, error) {
	switch cfg.InferenceProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when INFERENCE_PROVIDER=openai")
		}
		log.Info("using OpenAI reader", "model", cfg.LLMModel)
		return llm.NewLoader(cfg.OpenAIKey, openai.ChatModel(cfg.LLMModel), cfg.MaxAnswers), nil
	case "onnx":
		if cfg.ONNXModelPath == "" || cfg.TokenizerPath == "" {
			return nil, fmt.Errorf("ONNX_MODEL_PATH and TOKENIZER_PATH are required when INFERENCE_PROVIDER=onnx")
		}
		log.Info("using ONNX reader", "model", cfg.ONNXModelPath)
		return onnxqa.NewLoader(onnxqa.Config{
			LibraryPath:     cfg.OrtLibraryPath,
			ModelPath:       cfg.ONNXModelPath,
			TokenizerPath:   cfg.TokenizerPath,
			MaxSeqLen:       cfg.MaxSeqLen,
			MaxAnswerTokens: cfg.MaxAnswerTokens,
			MaxAnswers:      cfg.MaxAnswers,
			WindowWords:     cfg.WindowWords,
			WindowOverlap:   cfg.WindowOverlap,
		}), nil
	case "remote":
		if q == nil {
			return nil, fmt.Errorf("a queue is required when INFERENCE_PROVIDER=remote")
		}
		log.Info("using remote reader", "subject", cfg.InferenceSubject)
		return inference.NewRemoteLoader(q, cfg.InferenceSubject, cfg.ReadyAttempts, readyBackoff), nil
	default:
		return nil, fmt.Errorf("invalid INFERENCE_PROVIDER: %s (valid options: openai, onnx, remote)", cfg.InferenceProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("QUEUE_URL is required for remote inference")
	}
	nc, err := nats.Connect(cfg.QueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("using NATS queue")
	return queue.NewNATS(log, nc), nil
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "", "none":
		return cache.NewNoOpCache(), nil
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		log.Info("using Redis answer cache", "addr", cfg.RedisAddr)
		return c, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", cfg.CacheProvider)
	}
}

// buildStore returns a nil Store when history is disabled.
func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "", "none":
		return nil, nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres prediction history")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: none, postgres)", cfg.StoreProvider)
	}
}
