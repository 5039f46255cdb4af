package cli

import (
	"fmt"
	"time"

	"github.com/soyeahso/loom/internal/activation"
	"github.com/soyeahso/loom/internal/agent"
	"github.com/soyeahso/loom/internal/config"
	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/gateway"
	"github.com/soyeahso/loom/internal/hooks"
	"github.com/soyeahso/loom/internal/provider"
	"github.com/soyeahso/loom/internal/resolve"
	"github.com/soyeahso/loom/internal/service"
	"github.com/soyeahso/loom/internal/store"
	"github.com/soyeahso/loom/internal/workflow"
)

// app wires the runtime pieces every activation-touching command
// needs: config, stores, provider registry, agent registry, and the
// activation service itself.
type app struct {
	cfg       config.Config
	db        *store.DB // nil when the memory backend is selected
	providers provider.Registry
	agents    *agent.Registry
	workflows *workflow.Store
	hooks     *hooks.Manager
	resolver  *resolve.Resolver

	activations *activation.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		workflows: workflow.NewStore(paths.Workflows),
		hooks:     hooks.NewManager(log),
	}
	hooks.RegisterCommandHooks(a.hooks, cfg.Hooks)

	var actStore activation.Store
	var factory *service.Factory
	switch cfg.Store.Backend {
	case "memory":
		a.providers = provider.NewMemoryRegistry(log)
		actStore = activation.NewMemoryStore()
		factory = service.NewFactory(nil, log)
	default:
		a.db, err = store.Open(paths.Database(), log)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.providers = store.NewProviderStore(a.db)
		actStore = store.NewActivationStore(a.db)
		factory = service.NewFactory(store.NewDataStore(a.db), log)
	}

	a.agents = agent.NewRegistry()
	agent.RegisterBuiltins(a.agents)
	if err := a.registerWorkflows(); err != nil {
		a.Close()
		return nil, err
	}

	dialer := gateway.NewDialer("loom-cli", log)
	dialer.LocalToken = gateway.ResolveAuth(cfg.Server.Auth).Token

	a.resolver = resolve.New(a.providers, factory, log)
	a.activations = activation.New(activation.Options{
		Store:    actStore,
		Agents:   a.agents,
		Resolver: a.resolver,
		Hooks:    a.hooks,
		Remote:   dialer,
		Accounts: func() (map[string]domain.InstanceAccount, error) {
			return config.LoadInstances(paths.Instances)
		},
		LocalEndpoint:   fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		DispatchTimeout: time.Duration(cfg.Activation.DispatchTimeoutSec) * time.Second,
		WatchInterval:   time.Duration(cfg.Activation.WatchIntervalMs) * time.Millisecond,
		MaxParallel:     cfg.Activation.MaxParallel,
		Log:             log,
	})
	return a, nil
}

// registerWorkflows exposes each saved workflow template as an
// activatable artifact under its own name.
func (a *app) registerWorkflows() error {
	templates, err := a.workflows.List()
	if err != nil {
		return err
	}
	for _, t := range templates {
		a.agents.Register(&agent.WorkflowRef{
			AgentID:      t.Name,
			AgentVersion: "1.0.0",
			Agents:       t.Agents,
			Mode:         t.Mode,
		})
	}
	return nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
