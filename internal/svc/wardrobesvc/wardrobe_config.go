package wardrobesvc

// CatalogConfig holds the category set provisioned for new accounts.
type CatalogConfig struct {
	// Categories are the category names, in index order.
	Categories []string `env:"CATEGORIES" default:"tops,bottoms,shoes,accessories"`
}

// ContentConfig holds upload constraints.
type ContentConfig struct {
	// MaxSize is the maximum allowed size of an uploaded image in bytes.
	// Default is 20MB.
	MaxSize int64 `env:"MAX_SIZE" default:"20971520"`
}
