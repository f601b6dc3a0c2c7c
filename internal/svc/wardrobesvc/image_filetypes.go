package wardrobesvc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/mkrupp/wardrobe/internal/domain"
)

const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
	MIMETypeGIF  = "image/gif"
	MIMETypeTIFF = "image/tiff"
	MIMETypeWEBP = "image/webp"
	MIMETypeBMP  = "image/bmp"
)

var (
	// ErrImageTooLarge is returned when an upload exceeds the configured maximum size.
	ErrImageTooLarge = fmt.Errorf("%w: image too large", domain.ErrInvalidInput)
	// ErrImageTypeNotSupported is returned when the bytes are not a supported image format.
	ErrImageTypeNotSupported = fmt.Errorf("%w: image type not supported", domain.ErrInvalidInput)
	// ErrImageTypeMismatch is returned when the file extension contradicts the image content.
	ErrImageTypeMismatch = fmt.Errorf("%w: image type does not match extension", domain.ErrInvalidInput)
	// ErrImageCorrupt is returned when the image header cannot be decoded.
	ErrImageCorrupt = fmt.Errorf("%w: image corrupt", domain.ErrInvalidInput)
)

//nolint:gochecknoglobals
var (
	imageExtTypes = map[string]string{
		".jpg":  MIMETypeJPEG,
		".jpeg": MIMETypeJPEG,
		".png":  MIMETypePNG,
		".gif":  MIMETypeGIF,
		".tiff": MIMETypeTIFF,
		".tif":  MIMETypeTIFF,
		".webp": MIMETypeWEBP,
		".bmp":  MIMETypeBMP,
	}

	// '?' matches any byte
	imageTypeHeaders = []struct {
		mimeType string
		header   string
	}{
		{MIMETypeJPEG, "\xFF\xD8"},
		{MIMETypePNG, "\x89\x50\x4E\x47\x0D\x0A\x1A\x0A"},
		{MIMETypeGIF, "GIF87a"},
		{MIMETypeGIF, "GIF89a"},
		{MIMETypeTIFF, "\x49\x49\x2A\x00"},
		{MIMETypeTIFF, "\x4D\x4D\x00\x2A"},
		{MIMETypeWEBP, "RIFF????WEBPVP8"},
		{MIMETypeBMP, "BM"},
	}
)

// DetectImageType returns the MIME type of a supported image by its magic header.
func DetectImageType(data []byte) (string, bool) {
	for _, candidate := range imageTypeHeaders {
		if matchHeader(data, candidate.header) {
			return candidate.mimeType, true
		}
	}

	return "", false
}

func matchHeader(data []byte, header string) bool {
	if len(data) < len(header) {
		return false
	}

	for i := range len(header) {
		if header[i] != '?' && header[i] != data[i] {
			return false
		}
	}

	return true
}

// CheckUploadConstraints verifies that an upload is within size limits and is a decodable image
// of a supported type. A known file extension must agree with the content; an unknown or missing
// extension is accepted. Returns the detected MIME type.
func CheckUploadConstraints(filename string, data []byte, maxSize int64) (string, error) {
	if int64(len(data)) > maxSize {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrImageTooLarge, len(data), maxSize)
	}

	mimeType, ok := DetectImageType(data)
	if !ok {
		return "", ErrImageTypeNotSupported
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if extType, known := imageExtTypes[ext]; known && extType != mimeType {
		return "", fmt.Errorf("%w: %q is %s", ErrImageTypeMismatch, ext, mimeType)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("decode config: %w", errors.Join(ErrImageCorrupt, err))
	}

	return mimeType, nil
}
