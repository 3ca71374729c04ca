// Package di provides dependency injection configuration for the Murmur server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/murmurapp/murmur-server/internal/config"
	"github.com/murmurapp/murmur-server/internal/di/providers"
	"github.com/murmurapp/murmur-server/internal/interaction"
	"github.com/murmurapp/murmur-server/internal/logger"
	"github.com/murmurapp/murmur-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// args are the command-line flags handed to config.Load.
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ConfigProvider(args))
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideTelemetry)

	// Storage and messaging
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvidePublisher)

	// Business services
	do.Provide(injector, providers.ProvideQueryOptions)
	do.Provide(injector, providers.ProvideInteractionEngine)
	do.Provide(injector, providers.ProvideReconciler)
	do.Provide(injector, providers.ProvidePostService)
	do.Provide(injector, providers.ProvideCommentService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideInteractionService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes the core services. Failures surface here instead of
// on the first request.
func Bootstrap(injector do.Injector) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	for _, invoke := range []func(do.Injector) error{
		invokeAs[*providers.TelemetryHandle],
		invokeAs[*providers.StoreHandle],
		invokeAs[*providers.PublisherHandle],
		invokeAs[*interaction.Engine],
		invokeAs[*service.PostService],
		invokeAs[*service.CommentService],
		invokeAs[*service.UserService],
		invokeAs[*service.InteractionService],
	} {
		if err := invoke(injector); err != nil {
			return err
		}
	}
	return nil
}

// StartServer bootstraps the container and starts the HTTP server.
func StartServer(injector do.Injector) error {
	if err := Bootstrap(injector); err != nil {
		return err
	}
	return invokeAs[*providers.HTTPServerHandle](injector)
}

func invokeAs[T any](injector do.Injector) error {
	_, err := do.Invoke[T](injector)
	return err
}
