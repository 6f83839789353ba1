// Package storefront is the client-side data layer for the Project
// Nexus storefront backend. It translates catalog queries into the
// backend's REST vocabulary, normalizes the responses into canonical
// product shapes, caches them with configurable fetch policies, and
// keeps the cart and wishlist state machines persisted across
// restarts.
//
// Most applications construct one Client and reach everything through
// it:
//
//	client, err := storefront.New(ctx,
//	    core.WithBaseURL("https://api.example.com/api/v1"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
//	q := catalog.Query{Filters: catalog.Filters{Search: "laptop"}, Limit: 20}
//	result, err := client.Catalog.Search(ctx, q, catalog.CacheFirst)
//
// Individual packages remain importable on their own:
//   - github.com/projectnexus/storefront/core - configuration, errors, storage
//   - github.com/projectnexus/storefront/catalog - queries, translation, cache
//   - github.com/projectnexus/storefront/cart - cart and wishlist state
//   - github.com/projectnexus/storefront/auth - sessions and account endpoints
package storefront

import (
	"github.com/projectnexus/storefront/core"
)

// Re-export the types callers touch when wiring a client, so simple
// programs only import this package and catalog.
type (
	// Configuration
	Config            = core.Config
	Option            = core.Option
	HTTPConfig        = core.HTTPConfig
	CatalogConfig     = core.CatalogConfig
	StorageConfig     = core.StorageConfig
	ResilienceConfig  = core.ResilienceConfig
	TelemetryConfig   = core.TelemetryConfig
	LoggingConfig     = core.LoggingConfig
	DevelopmentConfig = core.DevelopmentConfig

	// Interfaces
	Logger    = core.Logger
	Telemetry = core.Telemetry
	Storage   = core.Storage
	Span      = core.Span
)

// Re-export the configuration options.
var (
	WithBaseURL         = core.WithBaseURL
	WithHTTPTimeout     = core.WithHTTPTimeout
	WithStorageProvider = core.WithStorageProvider
	WithRedisURL        = core.WithRedisURL
	WithRatingSeed      = core.WithRatingSeed
	WithCircuitBreaker  = core.WithCircuitBreaker
	WithRetry           = core.WithRetry
	WithTelemetry       = core.WithTelemetry
	WithDevelopmentMode = core.WithDevelopmentMode
)
