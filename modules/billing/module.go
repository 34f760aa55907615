// Package billing exposes the subscription lifecycle as a mountable
// HTTP module: plan selection, access status, payment verification,
// gateway webhooks, cancellation, and trial upgrades.
//
// The module owns its infrastructure wiring. New connects postgres,
// applies migrations, builds the plan catalog (optionally cached in
// redis), constructs the Paystack gateway, and assembles the
// orchestrator service. Mount the result anywhere in the host router:
//
//	mod, err := billingmod.New(ctx, cfg)
//	if err != nil { ... }
//	defer mod.Close()
//	r.Mount("/billing", mod.Handler())
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kaizenhr/billing/pkg/billing"
	"github.com/kaizenhr/billing/pkg/billingstore"
	"github.com/kaizenhr/billing/pkg/config"
	"github.com/kaizenhr/billing/pkg/logger"
	"github.com/kaizenhr/billing/pkg/pg"
)

// Module bundles the billing service with its HTTP surface and the
// infrastructure it owns.
type Module struct {
	svc       billing.Service
	log       *slog.Logger
	principal PrincipalResolver

	pool *pgxpool.Pool
	rdb  *redis.Client
}

// Option customizes module construction.
type Option func(*options)

type options struct {
	log       *slog.Logger
	publisher billing.Publisher
	principal PrincipalResolver
}

// WithLogger sets the module logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithPublisher routes domain events to the platform's notification
// pipeline. Defaults to discarding events.
func WithPublisher(p billing.Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithPrincipalResolver overrides how the authenticated caller is
// extracted from requests.
func WithPrincipalResolver(r PrincipalResolver) Option {
	return func(o *options) {
		if r != nil {
			o.principal = r
		}
	}
}

// NewFromEnv loads every configuration section from the environment
// and wires the full stack, building the logger from LOG_* variables
// unless WithLogger overrides it.
func NewFromEnv(ctx context.Context, opts ...Option) (*Module, error) {
	cfg, err := config.Load[Config]()
	if err != nil {
		return nil, fmt.Errorf("billing module: load config: %w", err)
	}
	pgCfg, err := config.Load[pg.Config]()
	if err != nil {
		return nil, fmt.Errorf("billing module: load postgres config: %w", err)
	}
	gwCfg, err := config.Load[billing.PaystackConfig]()
	if err != nil {
		return nil, fmt.Errorf("billing module: load gateway config: %w", err)
	}
	logCfg, err := config.Load[logger.Config]()
	if err != nil {
		return nil, fmt.Errorf("billing module: load logger config: %w", err)
	}

	opts = append([]Option{WithLogger(logger.NewFromConfig(logCfg))}, opts...)
	return New(ctx, cfg, pgCfg, gwCfg, opts...)
}

// New wires the full billing stack from configuration. The returned
// module holds the postgres pool and redis client; call Close on
// shutdown.
func New(ctx context.Context, cfg Config, pgCfg pg.Config, gwCfg billing.PaystackConfig, opts ...Option) (*Module, error) {
	o := &options{
		log:       slog.Default(),
		publisher: billing.NopPublisher{},
		principal: ContextPrincipalResolver,
	}
	for _, opt := range opts {
		opt(o)
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("billing module: connect postgres: %w", err)
	}
	if err := pg.Migrate(ctx, pool, pgCfg, o.log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("billing module: migrate: %w", err)
	}

	var rdb *redis.Client
	var src billing.PlanSource
	if cfg.PlansFile != "" {
		src = billing.NewYAMLSource(cfg.PlansFile)
	} else {
		src = billingstore.NewPGPlanSource(pool)
	}
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("billing module: parse redis url: %w", err)
		}
		rdb = redis.NewClient(redisOpts)
		src = billingstore.NewCachedPlanSource(src, rdb, cfg.PlanCacheKey,
			billingstore.WithPlanCacheTTL(cfg.PlanCacheTTL),
			billingstore.WithPlanCacheLogger(o.log),
		)
	}

	gateway, err := billing.NewPaystackGateway(gwCfg)
	if err != nil {
		closeAll(pool, rdb)
		return nil, fmt.Errorf("billing module: paystack gateway: %w", err)
	}

	svc, err := billing.NewService(ctx, src, gateway, billingstore.NewPostgres(pool),
		billing.WithLogger(o.log),
		billing.WithPublisher(o.publisher),
		billing.WithCallbackURL(cfg.CallbackURL),
	)
	if err != nil {
		closeAll(pool, rdb)
		return nil, fmt.Errorf("billing module: build service: %w", err)
	}

	return &Module{
		svc:       svc,
		log:       o.log,
		principal: o.principal,
		pool:      pool,
		rdb:       rdb,
	}, nil
}

// NewWithService builds a module around an existing service, skipping
// infrastructure wiring. Used by tests and by hosts that manage their
// own pools.
func NewWithService(svc billing.Service, opts ...Option) *Module {
	o := &options{
		log:       slog.Default(),
		principal: ContextPrincipalResolver,
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Module{svc: svc, log: o.log, principal: o.principal}
}

// Handler returns the module's router, ready to mount.
func (m *Module) Handler() http.Handler {
	return m.router()
}

// Healthcheck reports whether the module's database is reachable.
func (m *Module) Healthcheck(ctx context.Context) error {
	if m.pool == nil {
		return nil
	}
	return pg.Healthcheck(m.pool)(ctx)
}

// Close releases the connections the module owns.
func (m *Module) Close() {
	closeAll(m.pool, m.rdb)
}

func closeAll(pool *pgxpool.Pool, rdb *redis.Client) {
	if pool != nil {
		pool.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
