package vision

import (
	"encoding/base64"
	"fmt"
	"strings"
)

type Image struct {
	MIMEType string
	Data     []byte
	// URI is the original data URI, forwarded as-is where the backend accepts it.
	URI string
}

// ParseDataURI decodes "data:<mime>;base64,<payload>".
func ParseDataURI(s string) (*Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, ErrInvalidImage
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrInvalidImage
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok || !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: media type %q", ErrInvalidImage, meta)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return &Image{MIMEType: mime, Data: data, URI: s}, nil
}
