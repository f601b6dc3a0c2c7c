package domain

import "fmt"

// ErrInvalidCredentials is returned when the username/password combination is incorrect.
// It matches ErrUnauthorized with errors.Is.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

// DefaultCategoryNames are provisioned for every new account unless configured otherwise.
//
//nolint:gochecknoglobals
var DefaultCategoryNames = []string{"tops", "bottoms", "shoes", "accessories"}

// Account is a registered user identity with its fixed set of categories.
type Account struct {
	Username     string     // Immutable, case-sensitive identity key
	PasswordHash []byte     // One-way digest, never the plaintext
	CreatedAt    int64      // Unix timestamp of account creation
	Categories   []Category // Ordered, fixed-size, index-addressable
}

// Category is one of the clothing classifications belonging to an account.
type Category struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// CategoryNames returns the account's category names in category order.
func (a *Account) CategoryNames() []string {
	names := make([]string, len(a.Categories))
	for i, category := range a.Categories {
		names[i] = category.Name
	}

	return names
}

// Category returns the category at the given index, or ErrOutOfRange.
func (a *Account) Category(index int) (Category, error) {
	if index < 0 || index >= len(a.Categories) {
		return Category{}, ErrOutOfRange
	}

	return a.Categories[index], nil
}
