package storefront

// Version information for the storefront client library
const (
	// Version is the current library version
	Version = "development"

	// APIVersion is the backend API version the client speaks
	APIVersion = "v1"
)
