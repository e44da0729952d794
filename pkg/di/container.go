package di

import (
	"fmt"
	"time"

	"conversation-webhook/backend/conversation/api"
	"conversation-webhook/backend/conversation/repository"
	"conversation-webhook/backend/conversation/service"
	"conversation-webhook/backend/pkg/health"
	"conversation-webhook/backend/pkg/logger"
	"conversation-webhook/backend/pkg/resilience"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB                  *gorm.DB
	Logger              *logger.Logger
	Repository          repository.ConversationRepository
	EventProcessor      *service.EventProcessor
	ConversationService *service.ConversationService
	ConversationHandler *api.ConversationHandler
	HealthChecker       *health.Checker
}

// Config holds the configuration for the container
type Config struct {
	LoggerConfig   logger.Config
	Logger         *logger.Logger
	RequestTimeout time.Duration
	HealthPeriod   time.Duration
	// StoreBreaker guards the repository when set
	StoreBreaker *resilience.CircuitBreakerConfig
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	breaker := resilience.DefaultCircuitBreakerConfig("conversation-store")
	return &Config{
		LoggerConfig:   logger.DefaultConfig(),
		RequestTimeout: 30 * time.Second,
		HealthPeriod:   30 * time.Second,
		StoreBreaker:   &breaker,
	}
}

// New creates a new dependency injection container. A nil db wires the
// in-memory repository instead of the relational one.
func New(db *gorm.DB, config *Config) (*Container, error) {
	if config == nil {
		config = DefaultConfig()
	}

	log := config.Logger
	if log == nil {
		log = logger.New(config.LoggerConfig)
	}

	var repo repository.ConversationRepository
	if db != nil {
		repo = repository.NewGormConversationRepository(db)
	} else {
		log.Warn("No database configured, using in-memory conversation store")
		repo = repository.NewMemoryConversationRepository()
	}

	if config.StoreBreaker != nil {
		breakerConfig := *config.StoreBreaker
		breakerConfig.IsFailure = repository.StoreFailureClassifier
		repo = repository.NewBreakerConversationRepository(repo, resilience.NewCircuitBreaker(breakerConfig, log))
	}

	processor, err := service.NewEventProcessor(repo, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create event processor: %w", err)
	}
	conversations := service.NewConversationService(repo)

	checker := health.NewChecker(log, config.HealthPeriod)
	checker.RegisterDatabaseCheck(repo.Ping)

	return &Container{
		DB:                  db,
		Logger:              log,
		Repository:          repo,
		EventProcessor:      processor,
		ConversationService: conversations,
		ConversationHandler: api.NewConversationHandler(processor, conversations, config.RequestTimeout),
		HealthChecker:       checker,
	}, nil
}
