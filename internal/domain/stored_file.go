package domain

import (
	"fmt"
	"io"
)

// StoredFile is the on-disk representation of an uploaded image, namespaced by owner.
type StoredFile struct {
	Owner    string
	Filename string
	Body     []byte
}

// Size returns the size of the file content in bytes.
func (f *StoredFile) Size() int64 {
	return int64(len(f.Body))
}

// WriteTo writes the file content to the given writer.
func (f *StoredFile) WriteTo(writer io.Writer) (int64, error) {
	n, err := writer.Write(f.Body)
	if err != nil {
		return int64(n), fmt.Errorf("write: %w", err)
	}

	return int64(n), nil
}
