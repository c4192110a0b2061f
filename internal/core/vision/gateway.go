// Package vision relays uploaded images to a vision-capable model and
// returns a normalized description.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/erikakettleson-openai/erika-webrtc/pkg/types"
)

// Prompt is sent alongside every image.
const Prompt = "What's in this image?"

var (
	ErrRelay             = errors.New("image relay failed")
	ErrImageTooLarge     = fmt.Errorf("%w: image exceeds size limit", ErrRelay)
	ErrInvalidImage      = fmt.Errorf("%w: image is not a base64 data URI", ErrRelay)
	ErrUpstream          = fmt.Errorf("%w: vision endpoint error", ErrRelay)
	ErrMalformedResponse = fmt.Errorf("%w: malformed vision response", ErrRelay)
)

// Describer sends one image to a vision model. The returned body must be
// shaped like a chat completion.
type Describer interface {
	Describe(ctx context.Context, img *Image) (json.RawMessage, error)
}

type Result struct {
	Raw         json.RawMessage
	Description string
}

type Gateway struct {
	d        Describer
	maxBytes int64
	log      *slog.Logger
}

func NewGateway(d Describer, maxBytes int64, log *slog.Logger) *Gateway {
	return &Gateway{d: d, maxBytes: maxBytes, log: log}
}

func (g *Gateway) MaxBytes() int64 { return g.maxBytes }

// DescribeImage checks the payload, forwards it once and extracts the first
// description.
func (g *Gateway) DescribeImage(ctx context.Context, dataURI string) (*Result, error) {
	if int64(len(dataURI)) > g.maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrImageTooLarge, len(dataURI), g.maxBytes)
	}
	img, err := ParseDataURI(dataURI)
	if err != nil {
		return nil, err
	}

	raw, err := g.d.Describe(ctx, img)
	if err != nil {
		if errors.Is(err, ErrRelay) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	var cc types.ChatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	desc := cc.Description()
	g.log.Info("image described", "mime", img.MIMEType, "bytes", len(img.Data), "choices", len(cc.Choices))
	return &Result{Raw: raw, Description: desc}, nil
}
