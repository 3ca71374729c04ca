package providers

import (
	"github.com/samber/do/v2"

	"github.com/murmurapp/murmur-server/internal/config"
	"github.com/murmurapp/murmur-server/internal/interaction"
	"github.com/murmurapp/murmur-server/internal/logger"
	"github.com/murmurapp/murmur-server/internal/query"
	"github.com/murmurapp/murmur-server/internal/service"
	"github.com/murmurapp/murmur-server/internal/validation"
)

// QueryOptions carries the configured list limits into every pipeline.
type QueryOptions []query.Option

// ProvideQueryOptions provides the query pipeline options.
func ProvideQueryOptions(i do.Injector) (QueryOptions, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return QueryOptions{query.WithLimits(cfg.Query.DefaultLimit, cfg.Query.MaxLimit)}, nil
}

// ProvideInteractionEngine provides the like, bookmark and share engine.
func ProvideInteractionEngine(i do.Injector) (*interaction.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	_ = do.MustInvoke[*TelemetryHandle](i)

	policy, err := interaction.ParseRepairPolicy(cfg.Interaction.RepairPolicy)
	if err != nil {
		return nil, err
	}

	return interaction.New(storeHandle.RecordStore,
		interaction.WithRepairPolicy(policy),
		interaction.WithLogger(log.WithComponent("interaction")),
	), nil
}

// ProvideReconciler provides the relation consistency sweeper.
func ProvideReconciler(i do.Injector) (*interaction.Reconciler, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*interaction.Engine](i)

	return interaction.NewReconciler(storeHandle.RecordStore, engine.Policy(), log.WithComponent("reconciler")), nil
}

// ProvidePostService provides the post service.
func ProvidePostService(i do.Injector) (*service.PostService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	opts := do.MustInvoke[QueryOptions](i)

	return service.NewPostService(storeHandle.RecordStore, v, log.WithComponent("posts"), opts...), nil
}

// ProvideCommentService provides the comment service.
func ProvideCommentService(i do.Injector) (*service.CommentService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	opts := do.MustInvoke[QueryOptions](i)

	return service.NewCommentService(storeHandle.RecordStore, log.WithComponent("comments"), opts...), nil
}

// ProvideUserService provides the user service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	opts := do.MustInvoke[QueryOptions](i)

	return service.NewUserService(storeHandle.RecordStore, v, log.WithComponent("users"), opts...), nil
}

// ProvideInteractionService provides the interaction service.
func ProvideInteractionService(i do.Injector) (*service.InteractionService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	engine := do.MustInvoke[*interaction.Engine](i)
	publisher := do.MustInvoke[*PublisherHandle](i)

	return service.NewInteractionService(engine, publisher.Publisher, log.WithComponent("interactions")), nil
}
