// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"gocloud.dev/pubsub"
	"golang.org/x/time/rate"

	"github.com/allisson/integration-events/internal/config"
	"github.com/allisson/integration-events/internal/database"
	eventUsecase "github.com/allisson/integration-events/internal/event/usecase"
	"github.com/allisson/integration-events/internal/featureflags"
	"github.com/allisson/integration-events/internal/http"
	identityService "github.com/allisson/integration-events/internal/identity/service"
	identityUsecase "github.com/allisson/integration-events/internal/identity/usecase"
	"github.com/allisson/integration-events/internal/messaging"
	"github.com/allisson/integration-events/internal/metrics"
	outboxRepository "github.com/allisson/integration-events/internal/outbox/repository"
	outboxUsecase "github.com/allisson/integration-events/internal/outbox/usecase"
	subscriberRepository "github.com/allisson/integration-events/internal/subscriber/repository"
	subscriberService "github.com/allisson/integration-events/internal/subscriber/service"
	subscriberUsecase "github.com/allisson/integration-events/internal/subscriber/usecase"
)

// NotificationRepository combines every outbox storage capability the service
// wires: classification writes, dispatch bookkeeping and the read API.
type NotificationRepository interface {
	eventUsecase.NotificationStore
	outboxUsecase.NotificationRepository
	http.NotificationLister
}

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	featureFlags    *featureflags.Flags

	// Managers
	txManager database.TxManager

	// Repositories
	notificationRepo NotificationRepository
	policyRepo       subscriberUsecase.PolicyRepository

	// Messaging
	subscription    *pubsub.Subscription
	eventTopic      *pubsub.Topic
	deadLetterTopic *pubsub.Topic
	publisher       *messaging.TopicPublisher
	deadLetter      *messaging.NotificationDeadLetter
	consumer        *messaging.Consumer

	// Use Cases
	identityResolver *identityUsecase.Resolver
	classifier       *eventUsecase.ClassifierUseCase
	dispatcher       *outboxUsecase.DispatcherUseCase
	subscriberSync   *subscriberUsecase.SyncUseCase

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                   sync.Mutex
	loggerInit           sync.Once
	dbInit               sync.Once
	metricsProviderInit  sync.Once
	businessMetricsInit  sync.Once
	featureFlagsInit     sync.Once
	txManagerInit        sync.Once
	notificationRepoInit sync.Once
	policyRepoInit       sync.Once
	subscriptionInit     sync.Once
	eventTopicInit       sync.Once
	deadLetterTopicInit  sync.Once
	publisherInit        sync.Once
	deadLetterInit       sync.Once
	consumerInit         sync.Once
	identityResolverInit sync.Once
	classifierInit       sync.Once
	dispatcherInit       sync.Once
	subscriberSyncInit   sync.Once
	httpServerInit       sync.Once
	metricsServerInit    sync.Once
	initErrors           map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider.
// Returns nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
// A no-op recorder is returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// FeatureFlags returns the parsed feature flag set.
func (c *Container) FeatureFlags() (*featureflags.Flags, error) {
	var err error
	c.featureFlagsInit.Do(func() {
		c.featureFlags, err = featureflags.Parse(c.config.FeatureFlags)
		if err != nil {
			c.initErrors["featureFlags"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["featureFlags"]; exists {
		return nil, storedErr
	}
	return c.featureFlags, nil
}

// NotificationRepository returns the outbox notification repository instance.
func (c *Container) NotificationRepository() (NotificationRepository, error) {
	var err error
	c.notificationRepoInit.Do(func() {
		c.notificationRepo, err = c.initNotificationRepository()
		if err != nil {
			c.initErrors["notificationRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["notificationRepo"]; exists {
		return nil, storedErr
	}
	return c.notificationRepo, nil
}

// PolicyRepository returns the subscriber policy repository instance.
func (c *Container) PolicyRepository() (subscriberUsecase.PolicyRepository, error) {
	var err error
	c.policyRepoInit.Do(func() {
		c.policyRepo, err = c.initPolicyRepository()
		if err != nil {
			c.initErrors["policyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyRepo"]; exists {
		return nil, storedErr
	}
	return c.policyRepo, nil
}

// IdentityResolver returns the identity resolver instance.
func (c *Container) IdentityResolver() (*identityUsecase.Resolver, error) {
	var err error
	c.identityResolverInit.Do(func() {
		c.identityResolver, err = c.initIdentityResolver()
		if err != nil {
			c.initErrors["identityResolver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["identityResolver"]; exists {
		return nil, storedErr
	}
	return c.identityResolver, nil
}

// Classifier returns the event classifier use case instance.
func (c *Container) Classifier() (*eventUsecase.ClassifierUseCase, error) {
	var err error
	c.classifierInit.Do(func() {
		c.classifier, err = c.initClassifier()
		if err != nil {
			c.initErrors["classifier"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["classifier"]; exists {
		return nil, storedErr
	}
	return c.classifier, nil
}

// Subscription returns the inbound domain event subscription.
func (c *Container) Subscription() (*pubsub.Subscription, error) {
	var err error
	c.subscriptionInit.Do(func() {
		c.subscription, err = messaging.OpenSubscription(context.Background(), c.config.EventQueueURL)
		if err != nil {
			c.initErrors["subscription"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["subscription"]; exists {
		return nil, storedErr
	}
	return c.subscription, nil
}

// EventTopic returns the outbound integration event topic.
func (c *Container) EventTopic() (*pubsub.Topic, error) {
	var err error
	c.eventTopicInit.Do(func() {
		c.eventTopic, err = messaging.OpenTopic(context.Background(), c.config.EventTopicURL)
		if err != nil {
			c.initErrors["eventTopic"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventTopic"]; exists {
		return nil, storedErr
	}
	return c.eventTopic, nil
}

// DeadLetterTopic returns the dead-letter topic.
// Returns nil when no dead-letter topic is configured.
func (c *Container) DeadLetterTopic() (*pubsub.Topic, error) {
	var err error
	c.deadLetterTopicInit.Do(func() {
		if c.config.DeadLetterTopicURL == "" {
			return
		}
		c.deadLetterTopic, err = messaging.OpenTopic(context.Background(), c.config.DeadLetterTopicURL)
		if err != nil {
			c.initErrors["deadLetterTopic"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deadLetterTopic"]; exists {
		return nil, storedErr
	}
	return c.deadLetterTopic, nil
}

// Publisher returns the rate-limited topic publisher.
func (c *Container) Publisher() (*messaging.TopicPublisher, error) {
	var err error
	c.publisherInit.Do(func() {
		c.publisher, err = c.initPublisher()
		if err != nil {
			c.initErrors["publisher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["publisher"]; exists {
		return nil, storedErr
	}
	return c.publisher, nil
}

// NotificationDeadLetter returns the dead-letter sink for failed publishes.
// Returns nil when no dead-letter topic is configured.
func (c *Container) NotificationDeadLetter() (*messaging.NotificationDeadLetter, error) {
	var err error
	c.deadLetterInit.Do(func() {
		c.deadLetter, err = c.initNotificationDeadLetter()
		if err != nil {
			c.initErrors["deadLetter"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deadLetter"]; exists {
		return nil, storedErr
	}
	return c.deadLetter, nil
}

// Consumer returns the inbound event consumer.
func (c *Container) Consumer() (*messaging.Consumer, error) {
	var err error
	c.consumerInit.Do(func() {
		c.consumer, err = c.initConsumer()
		if err != nil {
			c.initErrors["consumer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["consumer"]; exists {
		return nil, storedErr
	}
	return c.consumer, nil
}

// Dispatcher returns the outbox dispatcher use case instance.
func (c *Container) Dispatcher() (*outboxUsecase.DispatcherUseCase, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// SubscriberSync returns the subscriber sync use case instance.
func (c *Container) SubscriberSync() (*subscriberUsecase.SyncUseCase, error) {
	var err error
	c.subscriberSyncInit.Do(func() {
		c.subscriberSync, err = c.initSubscriberSync()
		if err != nil {
			c.initErrors["subscriberSync"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["subscriberSync"]; exists {
		return nil, storedErr
	}
	return c.subscriberSync, nil
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance.
// Returns nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.subscription != nil {
		if err := c.subscription.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("subscription shutdown: %w", err))
		}
	}

	if c.eventTopic != nil {
		if err := c.eventTopic.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("event topic shutdown: %w", err))
		}
	}

	if c.deadLetterTopic != nil {
		if err := c.deadLetterTopic.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("dead-letter topic shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initNotificationRepository creates the notification repository instance.
func (c *Container) initNotificationRepository() (NotificationRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for notification repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return outboxRepository.NewMySQLNotificationRepository(db), nil
	case "postgres":
		return outboxRepository.NewPostgreSQLNotificationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initPolicyRepository creates the subscriber policy repository instance.
func (c *Container) initPolicyRepository() (subscriberUsecase.PolicyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for policy repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return subscriberRepository.NewMySQLPolicyRepository(db), nil
	case "postgres":
		return subscriberRepository.NewPostgreSQLPolicyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initIdentityResolver creates the identity resolver with its lookup client.
func (c *Container) initIdentityResolver() (*identityUsecase.Resolver, error) {
	if c.config.IdentityAPIBaseURL == "" {
		return nil, fmt.Errorf("identity api base url is not configured")
	}

	client := identityService.NewLookupClient(c.config.IdentityAPIBaseURL, c.config.IdentityAPITimeout)
	return identityUsecase.NewResolver(client, client, client, c.Logger()), nil
}

// initClassifier creates the event classifier with all its dependencies.
func (c *Container) initClassifier() (*eventUsecase.ClassifierUseCase, error) {
	resolver, err := c.IdentityResolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity resolver for classifier: %w", err)
	}

	repo, err := c.NotificationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification repository for classifier: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for classifier: %w", err)
	}

	flags, err := c.FeatureFlags()
	if err != nil {
		return nil, fmt.Errorf("failed to parse feature flags for classifier: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for classifier: %w", err)
	}

	return eventUsecase.NewClassifierUseCase(resolver, repo, txManager, flags, businessMetrics, c.Logger()), nil
}

// initPublisher creates the rate-limited publisher over the event topic.
func (c *Container) initPublisher() (*messaging.TopicPublisher, error) {
	topic, err := c.EventTopic()
	if err != nil {
		return nil, fmt.Errorf("failed to open event topic for publisher: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(c.config.PublishRatePerSec), c.config.PublishBurst)
	return messaging.NewTopicPublisher(topic, limiter), nil
}

// initNotificationDeadLetter creates the dead-letter sink for failed publishes.
func (c *Container) initNotificationDeadLetter() (*messaging.NotificationDeadLetter, error) {
	topic, err := c.DeadLetterTopic()
	if err != nil {
		return nil, fmt.Errorf("failed to open dead-letter topic: %w", err)
	}
	if topic == nil {
		return nil, nil
	}
	return messaging.NewNotificationDeadLetter(topic), nil
}

// initConsumer creates the inbound event consumer.
func (c *Container) initConsumer() (*messaging.Consumer, error) {
	subscription, err := c.Subscription()
	if err != nil {
		return nil, fmt.Errorf("failed to open subscription for consumer: %w", err)
	}

	deadLetterTopic, err := c.DeadLetterTopic()
	if err != nil {
		return nil, fmt.Errorf("failed to open dead-letter topic for consumer: %w", err)
	}

	classifier, err := c.Classifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get classifier for consumer: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for consumer: %w", err)
	}

	return messaging.NewConsumer(subscription, deadLetterTopic, classifier, businessMetrics, c.Logger()), nil
}

// initDispatcher creates the outbox dispatcher with all its dependencies.
func (c *Container) initDispatcher() (*outboxUsecase.DispatcherUseCase, error) {
	repo, err := c.NotificationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification repository for dispatcher: %w", err)
	}

	publisher, err := c.Publisher()
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher for dispatcher: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for dispatcher: %w", err)
	}

	useCaseConfig := outboxUsecase.Config{
		Interval:          c.config.DispatchInterval,
		ClaimCutoff:       c.config.DispatchClaimCutoff,
		Concurrency:       c.config.DispatchConcurrency,
		StuckThreshold:    c.config.DispatchStuckThreshold,
		RetentionInterval: c.config.RetentionInterval,
		RetentionPeriod:   c.config.RetentionPeriod,
	}

	deadLetter, err := c.NotificationDeadLetter()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead-letter sink for dispatcher: %w", err)
	}

	// A nil sink interface must stay nil, not wrap a nil pointer.
	var sink outboxUsecase.DeadLetterSink
	if deadLetter != nil {
		sink = deadLetter
	}

	return outboxUsecase.NewDispatcherUseCase(useCaseConfig, repo, publisher, sink, businessMetrics, c.Logger()), nil
}

// initSubscriberSync creates the subscriber sync use case with all its dependencies.
func (c *Container) initSubscriberSync() (*subscriberUsecase.SyncUseCase, error) {
	if c.config.AuthorizationAPIBaseURL == "" {
		return nil, fmt.Errorf("authorization api base url is not configured")
	}

	keeper, err := subscriberService.OpenPolicyKeeper(context.Background(), c.config.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy keeper: %w", err)
	}

	repo, err := c.PolicyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy repository for subscriber sync: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for subscriber sync: %w", err)
	}

	authClient := subscriberService.NewAuthorizationClient(
		c.config.AuthorizationAPIBaseURL,
		c.config.AuthorizationAPITimeout,
	)
	admin := subscriberService.NewLogSubscriptionAdmin(c.Logger())

	return subscriberUsecase.NewSyncUseCase(
		c.config.SubscriberSyncInterval,
		authClient,
		admin,
		keeper,
		repo,
		businessMetrics,
		c.Logger(),
	), nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	repo, err := c.NotificationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification repository for http server: %w", err)
	}

	corsMiddleware := http.CreateCORSMiddleware(c.config.CORSEnabled, c.config.CORSAllowOrigins, logger)

	var metricsMiddleware gin.HandlerFunc
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}
	if provider != nil {
		metricsMiddleware = metrics.HTTPMetricsMiddleware(provider.MeterProvider(), c.config.MetricsNamespace)
	}

	return http.NewServer(
		c.config.ServerHost,
		c.config.ServerPort,
		logger,
		repo,
		corsMiddleware,
		metricsMiddleware,
	), nil
}

// initMetricsServer creates the standalone metrics server.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
	), nil
}
