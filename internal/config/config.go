package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Timeouts TimeoutConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	Exa          string
	GoogleGemini string
	OpenAI       string
	NotionToken  string
	NotionParent string // Page id new Notion pages are created under
	GmailToken   string
	MemoryTopic  string // Watermill topic for memory appends
}

type AIConfig struct {
	LLMProvider       string // "openai" or "ollama"
	LLMModel          string // e.g. "gpt-4o-mini", "llama3"
	OpenAIBaseURL     string
	OllamaBaseURL     string
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaEmbedModel  string
}

// TimeoutConfig holds the per-call-class deadlines. Relative ordering
// (memory < search < classify < generation < reasoning < composition)
// is part of the degradation contract.
type TimeoutConfig struct {
	Memory      time.Duration
	Search      time.Duration
	Classify    time.Duration
	Generation  time.Duration
	Reasoning   time.Duration
	Composition time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			Exa:          getEnv("EXA_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			NotionToken:  getEnv("NOTION_ACCESS_TOKEN", ""),
			NotionParent: getEnv("NOTION_PARENT_PAGE_ID", ""),
			GmailToken:   getEnv("GMAIL_ACCESS_TOKEN", ""),
			MemoryTopic:  getEnv("MEMORY_APPEND_TOPIC_NAME", "MEMORY_APPEND"),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaEmbedModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Timeouts: TimeoutConfig{
			Memory:      getEnvAsDuration("TIMEOUT_MEMORY", 5*time.Second),
			Search:      getEnvAsDuration("TIMEOUT_SEARCH", 8*time.Second),
			Classify:    getEnvAsDuration("TIMEOUT_CLASSIFY", 10*time.Second),
			Generation:  getEnvAsDuration("TIMEOUT_GENERATION", 15*time.Second),
			Reasoning:   getEnvAsDuration("TIMEOUT_REASONING", 25*time.Second),
			Composition: getEnvAsDuration("TIMEOUT_COMPOSITION", 45*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
