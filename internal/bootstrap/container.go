package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"quickhand-be/internal/config"
	"quickhand-be/internal/controller"
	"quickhand-be/internal/pkg/logger"
	"quickhand-be/internal/repository"
	"quickhand-be/internal/repository/implementation"
	"quickhand-be/internal/service"
	"quickhand-be/pkg/assistant/compose"
	"quickhand-be/pkg/assistant/intent"
	"quickhand-be/pkg/assistant/plan"
	"quickhand-be/pkg/assistant/reasoner"
	"quickhand-be/pkg/assistant/roles"
	"quickhand-be/pkg/embedding"
	"quickhand-be/pkg/integrations/gmail"
	"quickhand-be/pkg/integrations/notion"
	"quickhand-be/pkg/llm/factory"
	"quickhand-be/pkg/memory"
	"quickhand-be/pkg/search/exa"

	pktNats "quickhand-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AssistantController controller.IAssistantController
	ActionController    controller.IActionController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

// NewContainer wires the full dependency graph. db may be nil; memory then
// runs on the in-process backend and the exchange audit log is skipped.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	aiLogger := initAILogger()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaEmbedModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbedModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OpenAIBaseURL,
		cfg.Keys.OpenAI,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		// Not fatal: the API boots and reports the misconfiguration per
		// request instead of crash-looping.
		log.Printf("[WARN] LLM provider unavailable: %v", err)
	} else {
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	}

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	var rdb *redis.Client
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb = redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, search cache disabled: %v", err)
		rdb = nil
	}

	// 5. Memory backend: durable when a database is configured, in-process
	// otherwise. Role isolation semantics are identical on both.
	var memoryStore memory.Store
	var exchangeRepo repository.ExchangeRepository
	if db != nil {
		memoryStore = memory.NewPgStore(db, embeddingProvider)
		exchangeRepo = implementation.NewExchangeRepository(db)
		log.Printf("[INFO] Using Memory Backend: POSTGRES (pgvector)")
	} else {
		memoryStore = memory.NewLocalStore()
		log.Printf("[INFO] Using Memory Backend: LOCAL (in-process)")
	}

	// 6. Assistant Pipeline
	registry := roles.DefaultRegistry()
	searchClient := exa.NewClient(cfg.Keys.Exa, rdb, aiLogger, cfg.Timeouts.Search)

	var assistantSvc service.IAssistantService
	if llmProvider != nil {
		classifier := intent.NewClassifier(llmProvider, aiLogger, cfg.Timeouts.Classify)
		turnReasoner := reasoner.NewReasoner(llmProvider, aiLogger, cfg.Timeouts.Reasoning)
		planBuilder := plan.NewBuilder(llmProvider, aiLogger, cfg.Timeouts.Generation)
		composer := compose.NewComposer(llmProvider, aiLogger, cfg.Timeouts.Composition)
		publisherSvc := service.NewPublisherService(cfg.Keys.MemoryTopic, pubSub)

		assistantSvc = service.NewAssistantService(
			registry,
			classifier,
			searchClient,
			memoryStore,
			turnReasoner,
			planBuilder,
			composer,
			publisherSvc,
			exchangeRepo,
			natsPub,
			aiLogger,
			cfg.Timeouts,
		)
	} else {
		assistantSvc = service.NewAssistantService(
			registry, nil, nil, nil, nil, nil, nil, nil, nil, nil,
			aiLogger, cfg.Timeouts,
		)
	}

	// 7. Action Execution
	notionClient := notion.NewClient(cfg.Keys.NotionToken, cfg.Keys.NotionParent, aiLogger)
	gmailClient := gmail.NewClient(cfg.Keys.GmailToken, aiLogger)
	actionSvc := service.NewActionService(notionClient, gmailClient, natsPub, sysLogger)

	consumerSvc := service.NewConsumerService(pubSub, cfg.Keys.MemoryTopic, memoryStore)

	// 8. Controllers
	return &Container{
		AssistantController: controller.NewAssistantController(assistantSvc),
		ActionController:    controller.NewActionController(actionSvc),

		ConsumerService: consumerSvc,
	}
}

// initAILogger writes assistant pipeline traffic to its own file so the
// main log stays readable.
func initAILogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "assistant.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[ASSISTANT] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
