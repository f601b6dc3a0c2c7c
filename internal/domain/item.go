package domain

// Item is a single uploaded clothing entry filed under one category.
// Items are never mutated after creation.
type Item struct {
	ID             string `json:"item_id"`
	Owner          string `json:"owner"`
	CategoryIndex  int    `json:"category"`
	StoredFilename string `json:"filename"`
	CreatedAt      int64  `json:"created_at"`
}

// ContentPath returns the path under which the item's image can be fetched.
func (item Item) ContentPath() string {
	return "/" + item.Owner + "/" + item.StoredFilename
}
