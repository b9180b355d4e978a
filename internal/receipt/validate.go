package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 << 20

// AllowedTypes are the accepted upload content types.
var AllowedTypes = []string{"image/jpeg", "image/png"}

var (
	ErrEmptyImage      = errors.New("uploaded file is empty")
	ErrImageTooLarge   = errors.New("File size exceeds 5MB limit.")
	ErrUnsupportedType = fmt.Errorf("Invalid file type. Allowed: %s", strings.Join(AllowedTypes, ", "))
)

// Image is a validated upload.
type Image struct {
	Data      []byte
	MIME      string
	Extension string
}

// Validate sniffs the upload content (the client-supplied name and content type
// are ignored) and checks that it is a decodable JPEG or PNG within MaxImageSize.
func Validate(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), AllowedTypes...) {
		return nil, fmt.Errorf("%w (got %s)", ErrUnsupportedType, mt.String())
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}

	return &Image{
		Data:      data,
		MIME:      mt.String(),
		Extension: strings.TrimPrefix(mt.Extension(), "."),
	}, nil
}
