package catalog

import (
	"context"
	"sync"

	"github.com/projectnexus/storefront/core"
)

// FetchPolicy selects how a read balances the cache against the
// network.
type FetchPolicy int

const (
	// CacheFirst serves the cached value when present and only then
	// falls back to the network.
	CacheFirst FetchPolicy = iota

	// CacheAndNetwork synchronously returns the last-known cached
	// value (possibly stale or absent) while a refresh runs in the
	// background, then notifies subscribers again when the refresh
	// resolves. Subscribers tolerate two callbacks per logical read.
	CacheAndNetwork

	// NetworkOnly always fetches, then updates the cache.
	NetworkOnly
)

// Update is delivered to subscribers when a list's cache entry
// changes. A cache-and-network read delivers one update from cache
// and a second one when the refresh lands (or fails, with Err set).
type Update struct {
	Key        string
	Products   []Product
	TotalCount int
	HasMore    bool
	FromCache  bool
	Err        error
}

// Request is the variable bag for Execute: the list query plus the
// entity ID for single-product operations.
type Request struct {
	Query
	ProductID int
}

// Result carries whichever payload the executed operation produces.
type Result struct {
	Products   []Product
	Product    *Product
	Categories []string
	TotalCount int
	HasMore    bool
}

// Client composes the transport, translator and cache into the
// catalog data layer.
//
// Concurrency: safe for concurrent use. Overlapping fetches for
// different key sets are independent; identical key sets are
// last-write-wins with no request de-duplication. Nothing cancels an
// in-flight refresh when its subscriber goes away.
type Client struct {
	transport  Transport
	translator *Translator
	cache      *Cache
	logger     core.Logger
	telemetry  core.Telemetry

	subMu  sync.Mutex
	subs   map[string]map[int]func(Update)
	nextID int
}

// ClientOption customizes the catalog client.
type ClientOption func(*Client)

// WithLogger configures the logger.
func WithLogger(l core.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTelemetry configures the telemetry provider.
func WithTelemetry(t core.Telemetry) ClientOption {
	return func(c *Client) {
		if t != nil {
			c.telemetry = t
		}
	}
}

// WithCache substitutes a prepared cache (shared or pre-warmed).
func WithCache(cache *Cache) ClientOption {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// NewClient creates a catalog client over the given transport.
func NewClient(transport Transport, translator *Translator, opts ...ClientOption) *Client {
	c := &Client{
		transport:  transport,
		translator: translator,
		cache:      NewCache(),
		logger:     &core.NoOpLogger{},
		telemetry:  &core.NoOpTelemetry{},
		subs:       make(map[string]map[int]func(Update)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache exposes the underlying cache (stats, invalidation).
func (c *Client) Cache() *Cache {
	return c.cache
}

// ListKey returns the cache key an operation + query pair resolves to.
// Pagination is excluded: pages of one argument set share a key. The
// featured flag is part of the argument set - it changes the request,
// so it must change the key.
func (c *Client) ListKey(op Operation, q Query) string {
	key := op.String() + "?" + q.Filters.Key()
	if q.FeaturedOnly {
		key += "|feat=true"
	}
	return key
}

// Subscribe registers a callback for cache updates on a key. The
// returned function unregisters it; a subscriber that never
// unsubscribes leaks (unmount does not abort anything at this layer).
func (c *Client) Subscribe(key string, fn func(Update)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.subs[key] == nil {
		c.subs[key] = make(map[int]func(Update))
	}
	id := c.nextID
	c.nextID++
	c.subs[key][id] = fn

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs[key], id)
		if len(c.subs[key]) == 0 {
			delete(c.subs, key)
		}
	}
}

func (c *Client) notify(u Update) {
	c.subMu.Lock()
	fns := make([]func(Update), 0, len(c.subs[u.Key]))
	for _, fn := range c.subs[u.Key] {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

// Execute dispatches a typed operation identifier with its variable
// bag. OpUnknown (or any unrecognized value) yields an explicit
// unsupported-operation error, never silently empty data.
func (c *Client) Execute(ctx context.Context, op Operation, req Request, policy FetchPolicy) (*Result, error) {
	switch op {
	case OpGetProducts:
		products, err := c.Products(ctx, req.Query, policy)
		if err != nil {
			return nil, err
		}
		return &Result{Products: products}, nil

	case OpGetCategories:
		categories, err := c.Categories(ctx, policy)
		if err != nil {
			return nil, err
		}
		return &Result{Categories: categories}, nil

	case OpGetProductByID:
		product, err := c.ProductByID(ctx, req.ProductID, policy)
		if err != nil {
			return nil, err
		}
		return &Result{Product: product}, nil

	case OpSearchProducts:
		res, err := c.Search(ctx, req.Query, policy)
		if err != nil {
			return nil, err
		}
		return &Result{Products: res.Products, TotalCount: res.TotalCount, HasMore: res.HasMore}, nil

	case OpProductsByCategory:
		products, err := c.ProductsByCategory(ctx, req.Filters.Category, req.Limit, req.Offset, policy)
		if err != nil {
			return nil, err
		}
		return &Result{Products: products}, nil

	case OpFeaturedProducts:
		products, err := c.FeaturedProducts(ctx, req.Limit, policy)
		if err != nil {
			return nil, err
		}
		return &Result{Products: products}, nil

	default:
		return nil, &core.ClientError{
			Op:   "catalog.Execute",
			Kind: "dispatch",
			Key:  op.String(),
			Err:  core.ErrUnsupportedOperation,
		}
	}
}

// ExecuteQueryText classifies a printed query document and executes
// the matching operation. Unmatched text raises Unsupported rather
// than returning empty data.
func (c *Client) ExecuteQueryText(ctx context.Context, queryText string, req Request, policy FetchPolicy) (*Result, error) {
	return c.Execute(ctx, ClassifyQueryText(queryText), req, policy)
}

// Products fetches the browse list.
func (c *Client) Products(ctx context.Context, q Query, policy FetchPolicy) ([]Product, error) {
	res, err := c.fetchList(ctx, OpGetProducts, q, policy)
	if err != nil {
		return nil, err
	}
	return res.Products, nil
}

// Search fetches a filtered, sorted page with pagination metadata.
// When no sort is chosen, search results are ordered by name; plain
// browse leaves the backend's natural order alone.
func (c *Client) Search(ctx context.Context, q Query, policy FetchPolicy) (*SearchResult, error) {
	if err := q.Filters.Validate(); err != nil {
		return nil, err
	}
	if q.Filters.Sort == SortDefault {
		q.Filters.Sort = SortName
	}
	return c.fetchList(ctx, OpSearchProducts, q, policy)
}

// ProductsByCategory fetches one category's products.
func (c *Client) ProductsByCategory(ctx context.Context, category string, limit, offset int, policy FetchPolicy) ([]Product, error) {
	q := Query{Limit: limit, Offset: offset}
	q.Filters.Category = category
	res, err := c.fetchList(ctx, OpProductsByCategory, q, policy)
	if err != nil {
		return nil, err
	}
	return res.Products, nil
}

// FeaturedProducts fetches the featured shelf.
func (c *Client) FeaturedProducts(ctx context.Context, limit int, policy FetchPolicy) ([]Product, error) {
	q := Query{Limit: limit, FeaturedOnly: true}
	res, err := c.fetchList(ctx, OpFeaturedProducts, q, policy)
	if err != nil {
		return nil, err
	}
	return res.Products, nil
}

// ProductByID fetches a single product. Cache hits are served without
// touching the network under CacheFirst; a network fetch replaces the
// cached entity wholesale.
func (c *Client) ProductByID(ctx context.Context, id int, policy FetchPolicy) (*Product, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "catalog.ProductByID")
	defer span.End()
	span.SetAttribute("product.id", id)

	if policy == CacheFirst {
		if p, ok := c.cache.Product(id); ok {
			return &p, nil
		}
	}

	raw, err := c.transport.FetchProduct(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	p, err := c.translator.Product(*raw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	c.cache.PutProduct(p)
	return &p, nil
}

// Categories fetches the category names.
func (c *Client) Categories(ctx context.Context, policy FetchPolicy) ([]string, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "catalog.Categories")
	defer span.End()

	if policy == CacheFirst {
		if names, ok := c.cache.Categories(); ok {
			return names, nil
		}
	}

	page, err := c.transport.FetchCategories(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	names := c.translator.Categories(page.Results)
	c.cache.SetCategories(names)
	return names, nil
}

// fetchList is the shared list read path. Under CacheAndNetwork the
// cached value is returned synchronously and the refresh runs on its
// own goroutine, notifying subscribers when it resolves; the caller's
// context still bounds that refresh.
func (c *Client) fetchList(ctx context.Context, op Operation, q Query, policy FetchPolicy) (*SearchResult, error) {
	key := c.ListKey(op, q)

	cached, total, more, ok := c.cache.List(key)

	switch policy {
	case CacheFirst:
		if ok {
			c.logger.Debug("List served from cache", map[string]interface{}{
				"operation": op.String(),
				"key":       key,
				"size":      len(cached),
			})
			return &SearchResult{Products: cached, TotalCount: total, HasMore: more}, nil
		}
		return c.refreshList(ctx, op, q, key)

	case CacheAndNetwork:
		c.notify(Update{Key: key, Products: cached, TotalCount: total, HasMore: more, FromCache: true})
		go func() {
			if _, err := c.refreshList(ctx, op, q, key); err != nil {
				c.logger.Warn("Background refresh failed", map[string]interface{}{
					"operation": op.String(),
					"key":       key,
					"error":     err.Error(),
				})
			}
		}()
		return &SearchResult{Products: cached, TotalCount: total, HasMore: more}, nil

	default: // NetworkOnly
		return c.refreshList(ctx, op, q, key)
	}
}

// refreshList performs the network fetch, merges the page into the
// cache and notifies subscribers. Offset zero starts a fresh list for
// the key set; later offsets append with identity de-duplication.
func (c *Client) refreshList(ctx context.Context, op Operation, q Query, key string) (*SearchResult, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "catalog."+op.String())
	defer span.End()
	span.SetAttribute("cache.key", key)

	page, err := c.transport.FetchProducts(ctx, q)
	if err != nil {
		span.RecordError(err)
		c.notify(Update{Key: key, Err: err})
		return nil, err
	}

	products, terrs := c.translator.Products(page.Results)
	for _, terr := range terrs {
		// A malformed record fails alone; the rest of the page lands.
		c.logger.Warn("Dropped malformed record", map[string]interface{}{
			"operation": op.String(),
			"key":       key,
			"error":     terr.Error(),
		})
	}

	hasMore := page.Next != nil
	if q.Offset == 0 {
		c.cache.ReplacePage(key, products, page.Count, hasMore)
	} else {
		c.cache.AppendPage(key, products, page.Count, hasMore)
	}

	merged, total, more, _ := c.cache.List(key)
	c.notify(Update{Key: key, Products: merged, TotalCount: total, HasMore: more})
	c.telemetry.RecordMetric("catalog.list.fetch", float64(len(products)), map[string]string{
		"operation": op.String(),
	})

	return &SearchResult{Products: merged, TotalCount: total, HasMore: more}, nil
}

// Invalidate drops one argument set's cached list.
func (c *Client) Invalidate(op Operation, q Query) {
	c.cache.Invalidate(c.ListKey(op, q))
}

// ClearCache drops all cached entities and lists.
func (c *Client) ClearCache() {
	c.cache.Clear()
	c.logger.Info("Catalog cache cleared", map[string]interface{}{})
}
