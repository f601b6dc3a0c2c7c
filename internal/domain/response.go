package domain

// RegisterResponse is returned by the register endpoint.
type RegisterResponse struct {
	Successful bool `json:"successful"`
}

// CategoriesResponse lists an account's category names in order.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// ItemsResponse lists the items of one category.
type ItemsResponse struct {
	Clothes []Item `json:"clothes"`
}

// OutfitResponse holds a composed outfit; absent slots encode as null.
type OutfitResponse struct {
	Outfit Outfit `json:"outfit"`
}

// UploadResponse describes a freshly created item.
type UploadResponse struct {
	Item Item   `json:"item"`
	URL  string `json:"url"`
}

// WhoAmIResponse identifies the caller of an authenticated request.
type WhoAmIResponse struct {
	Username string `json:"username"`
}
