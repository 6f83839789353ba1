package core

import "time"

// Environment Variables
const (
	// Backend connection
	EnvBaseURL = "STOREFRONT_BASE_URL" // REST API base URL

	// Storage
	EnvRedisURL = "REDIS_URL" // Redis connection URL for the redis storage provider

	// Common Configuration
	EnvDevMode = "STOREFRONT_DEV_MODE" // Development mode flag
)

// Storage keys. These match the layout the mobile client persisted
// under AsyncStorage, so state written by one build of the app is
// readable by another.
const (
	// StorageKeyCart holds one serialized array of cart item records
	StorageKeyCart = "shopping_cart"

	// StorageKeyWishlist holds one serialized array of product records
	StorageKeyWishlist = "wishlist"

	// Auth token and profile keys
	StorageKeyAccessToken  = "access_token"
	StorageKeyRefreshToken = "refresh_token"
	StorageKeyUserData     = "user_data"
)

// Redis Storage Defaults
const (
	// DefaultRedisPrefix is the key prefix for storefront state in Redis
	// Format: <prefix><storage-key>
	// Example: storefront:state:shopping_cart
	DefaultRedisPrefix = "storefront:state:"
)

// Pagination defaults
const (
	// DefaultPageSize is applied when a query specifies an offset but
	// no limit. Page numbers derive from offset/limit, so the same
	// default must be used on every call of a paged sequence.
	DefaultPageSize = 20
)

// Transport defaults
const (
	DefaultHTTPTimeout = 30 * time.Second
)
