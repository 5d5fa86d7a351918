package di

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"strategy-editor/application/ports"
	"strategy-editor/application/session"
	domainconfig "strategy-editor/domain/config"
	"strategy-editor/infrastructure/config"
	"strategy-editor/infrastructure/messaging/eventbridge"
	"strategy-editor/infrastructure/observability"
	"strategy-editor/infrastructure/persistence"
	"strategy-editor/infrastructure/persistence/badger"
	"strategy-editor/infrastructure/persistence/dynamodb"
	"strategy-editor/infrastructure/persistence/supabase"
	"strategy-editor/interfaces/http/rest"
)

// metricsNamespace prefixes every Prometheus metric
const metricsNamespace = "editor"

// RemoteStore is the optional remote side of the repository. It is a
// distinct type so the injector can tell it apart from the local store.
type RemoteStore interface {
	ports.StrategyStore
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Environment, cfg.LogLevel)
}

// ProvideMetrics creates the metrics collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideTracing starts the OTLP exporter when tracing is enabled. The
// provider is nil otherwise, which yields no-op tracers.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Tracing enabled", zap.String("endpoint", cfg.OTLPEndpoint))
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideRules loads the editor rules, overlaying the optional rules file
func ProvideRules(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	return config.LoadRules(cfg.RulesPath)
}

// ProvideRulesWatcher watches the rules file for changes. Without a rules
// file there is nothing to watch and the watcher is nil.
func ProvideRulesWatcher(cfg *config.Config, logger *zap.Logger) (*config.RulesWatcher, func(), error) {
	if cfg.RulesPath == "" {
		return nil, func() {}, nil
	}
	w, err := config.NewRulesWatcher(cfg.RulesPath, logger)
	if err != nil {
		return nil, nil, err
	}
	w.Start()
	return w, w.Stop, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideLocalStore opens the badger store. Without a path it lives in memory.
func ProvideLocalStore(cfg *config.Config, logger *zap.Logger) (*badger.StrategyStore, func(), error) {
	dbCfg := badger.InMemoryConfig()
	if cfg.Persistence.LocalPath != "" {
		dbCfg = badger.Config{Path: cfg.Persistence.LocalPath, SyncWrites: cfg.IsProduction()}
	}
	db, err := badger.Open(dbCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := badger.NewStrategyStore(db)
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close local store", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

// ProvideRemoteStore creates the store selected by STORE_BACKEND, or nil
// for the local backend
func ProvideRemoteStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (RemoteStore, error) {
	p := cfg.Persistence
	switch p.Backend {
	case config.BackendSupabase:
		store, err := supabase.NewStrategyStore(p.SupabaseURL, p.SupabaseKey, p.SupabaseTable, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendDynamoDB:
		return dynamodb.NewStrategyStore(client, p.DynamoDBTable, logger), nil
	}
	return nil, nil
}

// ProvideRepository combines the remote and local stores
func ProvideRepository(
	remote RemoteStore,
	local *badger.StrategyStore,
	cfg *config.Config,
	tracing *observability.TracerProvider,
	metrics *observability.Collector,
	logger *zap.Logger,
) *persistence.Repository {
	var remoteStore ports.StrategyStore
	if remote != nil {
		remoteStore = remote
	}
	opts := persistence.Options{
		RemoteName:       cfg.Persistence.Backend,
		Timeout:          cfg.Persistence.RemoteTimeout,
		BreakerFailures:  cfg.Persistence.BreakerFailures,
		BreakerOpenDelay: cfg.Persistence.BreakerOpenDelay,
	}
	return persistence.NewRepository(remoteStore, local, opts, logger,
		persistence.WithTracer(tracing.Tracer()),
		persistence.WithStoreMetrics(metrics),
	)
}

// ProvideAutosaver creates the debounced local autosaver, or nil when
// autosave is disabled. Cleanup flushes the pending record.
func ProvideAutosaver(cfg *config.Config, local *badger.StrategyStore, logger *zap.Logger) (*persistence.Autosaver, func()) {
	if !cfg.EnableAutosave {
		return nil, func() {}
	}
	a := persistence.NewAutosaver(local, cfg.Persistence.AutosaveDelay, logger)
	return a, a.Close
}

// ProvidePublisher creates the hand-off publisher, or nil when hand-off is
// disabled
func ProvidePublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if !cfg.EnableHandoff {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideSession creates the editor session
func ProvideSession(
	rules *domainconfig.DomainConfig,
	repo *persistence.Repository,
	autosaver *persistence.Autosaver,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *session.Session {
	opts := []session.Option{
		session.WithRepository(repo),
		session.WithMetrics(metrics),
	}
	if autosaver != nil {
		opts = append(opts, session.WithAutosaver(autosaver))
	}
	if publisher != nil {
		opts = append(opts, session.WithPublisher(publisher))
	}
	return session.New(rules, logger, opts...)
}

// ProvideSessionHost wraps the session for HTTP access and applies rule
// reloads to it
func ProvideSessionHost(
	s *session.Session,
	metrics *observability.Collector,
	watcher *config.RulesWatcher,
	logger *zap.Logger,
) *rest.SessionHost {
	host := rest.NewSessionHost(s, metrics, logger)
	host.WatchRules(watcher)
	return host
}

// ProvideRouter creates the HTTP handler
func ProvideRouter(host *rest.SessionHost, metrics *observability.Collector, cfg *config.Config, logger *zap.Logger) http.Handler {
	return rest.NewRouter(host, metrics, rest.RouterOptions{
		EnableCORS:    cfg.EnableCORS,
		EnableMetrics: cfg.EnableMetrics,
	}, logger).Setup()
}
