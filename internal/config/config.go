package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by the server, worker and CLI.
type Config struct {
	// Server
	Port       int    `env:"PORT" envDefault:"8080"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8081"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "text"

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// Sessions
	MaxSessions int `env:"MAX_SESSIONS" envDefault:"1000"`
	SessionTTL  int `env:"SESSION_TTL" envDefault:"3600"` // seconds idle before eviction

	// Inference
	InferenceProvider string `env:"INFERENCE_PROVIDER" envDefault:"openai"` // "openai", "onnx" or "remote"
	MaxAnswers        int    `env:"MAX_ANSWERS" envDefault:"5"`

	// OpenAI
	OpenAIKey string `env:"OPENAI_API_KEY"`
	LLMModel  string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	// ONNX Runtime
	OrtLibraryPath  string `env:"ORT_LIBRARY_PATH"`
	ONNXModelPath   string `env:"ONNX_MODEL_PATH"`
	TokenizerPath   string `env:"TOKENIZER_PATH"`
	MaxSeqLen       int    `env:"MAX_SEQ_LEN" envDefault:"384"`
	MaxAnswerTokens int    `env:"MAX_ANSWER_TOKENS" envDefault:"32"`
	WindowWords     int    `env:"WINDOW_WORDS" envDefault:"200"`
	WindowOverlap   int    `env:"WINDOW_OVERLAP" envDefault:"64"`

	// Queue (remote inference)
	QueueURL         string `env:"QUEUE_URL"`
	InferenceSubject string `env:"INFERENCE_SUBJECT" envDefault:"qa.find_answers"`
	ReadyAttempts    int    `env:"READY_ATTEMPTS" envDefault:"5"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "none" or "redis"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"none"` // "none" or "postgres"
	DBURL         string `env:"DB_URL"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
