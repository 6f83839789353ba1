package storefront

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/projectnexus/storefront/auth"
	"github.com/projectnexus/storefront/cart"
	"github.com/projectnexus/storefront/catalog"
	"github.com/projectnexus/storefront/core"
	"github.com/projectnexus/storefront/resilience"
	"github.com/projectnexus/storefront/telemetry"
)

// Client is the assembled data layer: catalog queries, cart and
// wishlist state, and account sessions behind one construction site.
type Client struct {
	Catalog  *catalog.Client
	Cart     *cart.Store
	Wishlist *cart.Wishlist
	Auth     *auth.API
	Tokens   *auth.TokenManager

	id      string
	cfg     *core.Config
	logger  core.Logger
	storage core.Storage

	redis    *core.RedisStore
	otel     *telemetry.OTelProvider
	hydrated bool
}

// New builds a client from functional options layered over defaults
// and environment variables. The context bounds startup work (the
// Redis ping and state hydration).
func New(ctx context.Context, opts ...core.Option) (*Client, error) {
	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig builds a client from an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *core.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		id:  uuid.NewString(),
		cfg: cfg,
	}

	c.logger = buildLogger(cfg)

	var tel core.Telemetry = &core.NoOpTelemetry{}
	if cfg.Telemetry.Enabled {
		provider, err := telemetry.NewOTelProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("initializing telemetry: %w", err)
		}
		c.otel = provider
		tel = provider
	}

	if err := c.buildStorage(ctx); err != nil {
		return nil, err
	}

	c.Tokens = auth.NewTokenManager(c.storage, auth.WithTokenLogger(c.logger))
	c.Auth = auth.NewAPI(cfg, c.Tokens, auth.WithAPILogger(c.logger))

	transportOpts := []catalog.TransportOption{
		catalog.WithTokenSource(c.Tokens),
		catalog.WithTransportLogger(c.logger),
	}
	// Retry wraps the breaker when both are enabled, so attempts stop
	// as soon as the circuit opens.
	var policy resilience.Executor
	if cfg.Resilience.CircuitBreaker.Enabled {
		policy = resilience.NewCircuitBreaker(cfg.Resilience.CircuitBreaker,
			resilience.WithBreakerLogger(c.logger))
	}
	if cfg.Resilience.Retry.Enabled {
		policy = resilience.NewRetrier(cfg.Resilience.Retry, policy)
	}
	if policy != nil {
		transportOpts = append(transportOpts, catalog.WithBreaker(policy))
	}
	transport := catalog.NewRESTTransport(cfg, transportOpts...)

	c.Catalog = catalog.NewClient(transport,
		catalog.NewTranslator(cfg.Catalog.RatingSeed),
		catalog.WithLogger(c.logger),
		catalog.WithTelemetry(tel),
	)

	c.Cart = cart.NewStore(c.storage, cart.WithLogger(c.logger))
	c.Wishlist = cart.NewWishlist(c.storage, cart.WithWishlistLogger(c.logger))

	c.logger.Info("Storefront client initialized", map[string]interface{}{
		"client_id": c.id,
		"base_url":  cfg.BaseURL,
		"storage":   cfg.Storage.Provider,
		"version":   Version,
	})
	return c, nil
}

// ID returns the unique identifier of this client instance, present
// in its log entries.
func (c *Client) ID() string {
	return c.id
}

// Hydrate loads persisted cart and wishlist state. Safe to call more
// than once; corrupt or unreachable storage degrades to empty state.
func (c *Client) Hydrate(ctx context.Context) {
	if c.hydrated {
		return
	}
	c.Cart.Hydrate(ctx)
	c.Wishlist.Hydrate(ctx)
	c.hydrated = true
}

// Close flushes pending state writes and releases transport and
// telemetry resources.
func (c *Client) Close(ctx context.Context) error {
	var firstErr error
	if err := c.Cart.Flush(ctx); err != nil {
		firstErr = err
	}
	if err := c.Wishlist.Flush(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if c.otel != nil {
		if err := c.otel.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Config returns the effective configuration.
func (c *Client) Config() *core.Config {
	return c.cfg
}

func (c *Client) buildStorage(ctx context.Context) error {
	switch c.cfg.Storage.Provider {
	case "", "inmemory":
		store := core.NewMemoryStore()
		store.SetLogger(c.logger)
		c.storage = store
	case "redis":
		store, err := core.NewRedisStore(ctx, core.RedisStoreOptions{
			RedisURL:  c.cfg.Storage.RedisURL,
			Namespace: c.cfg.Storage.Namespace,
			Logger:    c.logger,
		})
		if err != nil {
			return fmt.Errorf("initializing redis storage: %w", err)
		}
		c.redis = store
		c.storage = store
	default:
		return fmt.Errorf("unknown storage provider %q: %w",
			c.cfg.Storage.Provider, core.ErrInvalidConfiguration)
	}
	return nil
}

func buildLogger(cfg *core.Config) core.Logger {
	level := cfg.Logging.Level
	format := cfg.Logging.Format
	if cfg.Development.Enabled {
		if cfg.Development.DebugLogging {
			level = "debug"
		}
		if cfg.Development.PrettyLogs {
			format = "text"
		}
	}
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = "storefront"
	}
	return telemetry.NewLogger(level, format, telemetry.WithServiceName(serviceName))
}
