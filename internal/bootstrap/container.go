package bootstrap

import (
	"log"
	"time"

	"ai-tutorchat-be/internal/config"
	"ai-tutorchat-be/internal/controller"
	"ai-tutorchat-be/internal/pkg/logger"
	"ai-tutorchat-be/internal/repository/contract"
	"ai-tutorchat-be/internal/repository/implementation"
	"ai-tutorchat-be/internal/repository/memory"
	"ai-tutorchat-be/internal/repository/rediscache"
	"ai-tutorchat-be/internal/repository/unitofwork"
	"ai-tutorchat-be/internal/service"
	"ai-tutorchat-be/internal/store"
	"ai-tutorchat-be/pkg/llm/factory"
	pktNats "ai-tutorchat-be/pkg/nats"
	"ai-tutorchat-be/pkg/retention"
	"ai-tutorchat-be/pkg/tutor"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// sessionEventsTopic is the in-process channel carrying session lifecycle events.
const sessionEventsTopic = "SESSION_EVENTS"

type Container struct {
	// Controllers
	LearningController controller.ILearningController
	TopicController    controller.ITopicController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Fast tier for live sessions
	var sessionCache contract.SessionCache
	if cfg.App.SessionCache == "redis" {
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Fatalf("[FATAL] Invalid REDIS_URL: %v", err)
		}
		sessionCache = rediscache.NewSessionCache(redis.NewClient(opts))
		log.Printf("[INFO] Using Session Cache: REDIS")
	} else {
		sessionCache = memory.NewSessionCache()
		log.Printf("[INFO] Using Session Cache: MEMORY")
	}
	sessionStore := store.NewSessionStore(implementation.NewSessionRepository(db), sessionCache, sysLogger)

	// 3. Event plumbing: in-process channel, relayed to NATS when available
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	publisherService := service.NewPublisherService(sessionEventsTopic, pubSub)

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	consumerService := service.NewConsumerService(pubSub, sessionEventsTopic, natsPub, sysLogger)

	// 4. LLM gateways
	llmProvider, err := factory.NewProvider(
		cfg.Ai.Provider,
		cfg.Ai.Model,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.Provider, cfg.Ai.Model)

	gatewayLog := log.Default()
	timeout := cfg.Ai.GatewayTimeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	scorer := tutor.NewScoringGateway(llmProvider, timeout, gatewayLog)
	feedback := tutor.NewFeedbackGenerator(llmProvider, timeout, gatewayLog)
	intents := tutor.NewIntentRouter(llmProvider, timeout, gatewayLog)
	clarifier := tutor.NewClarificationHandler(llmProvider, timeout, gatewayLog)

	// 5. Services
	scheduler := retention.NewScheduler()
	sessionService := service.NewSessionService(uowFactory, sessionStore, scheduler, publisherService, sysLogger)
	conversationService := service.NewConversationService(
		sessionStore,
		uowFactory,
		sessionService,
		scorer,
		feedback,
		intents,
		clarifier,
		sysLogger,
	)
	topicService := service.NewTopicService(uowFactory)

	// 6. Controllers
	return &Container{
		LearningController: controller.NewLearningController(sessionService, conversationService),
		TopicController:    controller.NewTopicController(topicService),
		ConsumerService:    consumerService,
		Logger:             sysLogger,
	}
}
