package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Config holds all environmentally dependent settings for the PolicySage API.
// It is built once at startup and handed to each component explicitly.
type Config struct {
	HTTPAddr string `env:"SAGE_HTTP_ADDR" envDefault:":8080"`

	LLMProvider  string `env:"SAGE_LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey string `env:"SAGE_GEMINI_API_KEY"`
	GeminiModel  string `env:"SAGE_GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	OllamaHost   string `env:"SAGE_OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OllamaModel  string `env:"SAGE_OLLAMA_MODEL" envDefault:"llama3"`

	// Neo4j Graph DB
	Neo4jURI      string `env:"SAGE_NEO4J_URI"`
	Neo4jUser     string `env:"SAGE_NEO4J_USER"`
	Neo4jPassword string `env:"SAGE_NEO4J_PASSWORD"`

	// Retrieval profile
	Profile     string `env:"SAGE_PROFILE" envDefault:"policy"`
	ProfileFile string `env:"SAGE_PROFILE_FILE"`

	// Model circuit breaker
	BreakerThreshold int           `env:"SAGE_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"SAGE_BREAKER_COOLDOWN" envDefault:"30s"`

	// Ingestion
	RegistryDSN       string `env:"SAGE_REGISTRY_DSN" envDefault:"file:policysage.db?cache=shared"`
	IngestConcurrency int    `env:"SAGE_INGEST_CONCURRENCY" envDefault:"4"`
}

// Validate ensures that all required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateModel(); err != nil {
		return err
	}
	if c.BreakerThreshold < 1 {
		return fmt.Errorf("SAGE_BREAKER_THRESHOLD must be at least 1")
	}
	return c.ValidateStorage()
}

func (c *Config) validateModel() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("SAGE_GEMINI_API_KEY is missing; set it in the environment or .env file")
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("SAGE_OLLAMA_HOST is required when SAGE_LLM_PROVIDER is ollama")
		}
	default:
		return fmt.Errorf("SAGE_LLM_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOllama, c.LLMProvider)
	}
	return nil
}

// ValidateStorage checks only the graph and registry settings. Commands that
// never call the model, such as ingest, validate with this.
func (c *Config) ValidateStorage() error {
	var missing []string
	if c.Neo4jURI == "" {
		missing = append(missing, "SAGE_NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		missing = append(missing, "SAGE_NEO4J_USER")
	}
	if c.Neo4jPassword == "" {
		missing = append(missing, "SAGE_NEO4J_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}

	if c.IngestConcurrency < 1 {
		return fmt.Errorf("SAGE_INGEST_CONCURRENCY must be at least 1")
	}
	return nil
}

// Parse reads settings from the environment (and an optional .env file)
// and validates them.
func Parse() (*Config, error) {
	return parse((*Config).Validate)
}

// ParseStorage is Parse without the model settings check.
func ParseStorage() (*Config, error) {
	return parse((*Config).ValidateStorage)
}

func parse(validate func(*Config) error) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is Parse for process startup: an invalid configuration halts the process.
func Load() *Config {
	return mustLoad(Parse)
}

// LoadStorage is ParseStorage for process startup.
func LoadStorage() *Config {
	return mustLoad(ParseStorage)
}

func mustLoad(parseFn func() (*Config, error)) *Config {
	cfg, err := parseFn()
	if err != nil {
		log.Fatalf("[Config] Validation failed: %v", err)
	}
	return cfg
}
