//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"strategy-editor/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideTracing,
	ProvideRules,
	ProvideRulesWatcher,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideLocalStore,
	ProvideRemoteStore,
	ProvideRepository,
	ProvideAutosaver,
	ProvidePublisher,
	ProvideSession,
	ProvideSessionHost,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The cleanup function
// releases resources in reverse order of creation.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
