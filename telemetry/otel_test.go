package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/projectnexus/storefront/core"
)

func TestNewOTelProvider_RequiresDestination(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Telemetry.Enabled = true

	_, err := NewOTelProvider(cfg)
	if !errors.Is(err, core.ErrMissingConfiguration) {
		t.Fatalf("expected ErrMissingConfiguration, got %v", err)
	}
}

func TestNewOTelProvider_DevModeUsesStdout(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Development.Enabled = true

	provider, err := NewOTelProvider(cfg)
	if err != nil {
		t.Fatalf("dev mode should construct without an endpoint: %v", err)
	}

	ctx, span := provider.StartSpan(context.Background(), "catalog.get_products")
	span.SetAttribute("cache.key", "get_products?cat=|q=|min=|max=|sort=name")
	span.End()
	_ = ctx

	provider.RecordMetric("catalog.list.fetch", 20, map[string]string{"operation": "get_products"})

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}
