package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by SOLOHEART_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("SOLOHEART_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabaseURL returns the Postgres connection string. When empty the server
// runs on the in-process store and nothing survives a restart.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// AssistedProvider returns the configured assisted-extraction provider.
// Valid values: openai, mock, disabled. Defaults to "disabled": the engine
// runs pattern-only out of the box.
func AssistedProvider() string {
	p := os.Getenv("ASSISTED_PROVIDER")
	if p == "" {
		return "disabled"
	}
	return p
}

// AssistedTimeout bounds one assisted extraction call.
// Defaults to 5s if not set.
func AssistedTimeout() time.Duration {
	ms, err := strconv.Atoi(os.Getenv("ASSISTED_TIMEOUT_MS"))
	if err != nil || ms <= 0 {
		return 5 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock, disabled. Defaults to "disabled"; recall then
// degrades to lexical retrieval.
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "disabled"
	}
	return p
}

// RulesPath returns the path to the YAML rules document. Empty means the
// compiled-in defaults.
func RulesPath() string {
	return os.Getenv("RULES_PATH")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
