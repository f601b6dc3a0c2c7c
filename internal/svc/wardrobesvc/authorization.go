package wardrobesvc

import (
	"fmt"
	"strings"

	"github.com/mkrupp/wardrobe/internal/domain"
)

// AuthorizeContentPath decides whether username may access the content path
// /<owner>/<rest...>. Paths with fewer than two segments are ErrNotFound,
// regardless of the caller; a foreign owner is ErrForbidden.
// On success it returns the owner and the remainder of the path.
func AuthorizeContentPath(username, resourcePath string) (owner, rest string, err error) {
	owner, rest, ok := strings.Cut(strings.TrimPrefix(resourcePath, "/"), "/")
	if !ok {
		return "", "", fmt.Errorf("%w: malformed content path", domain.ErrNotFound)
	}

	if username == "" || owner != username {
		return "", "", fmt.Errorf("%w: content of another account", domain.ErrForbidden)
	}

	return owner, rest, nil
}
