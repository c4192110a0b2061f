package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIDescriber asks a chat-completions model about the image and passes the
// completion body through unchanged.
type OpenAIDescriber struct {
	c     openai.Client
	model string
}

func NewOpenAIDescriber(apiKey, baseURL, model string, hc *http.Client) *OpenAIDescriber {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	return &OpenAIDescriber{c: openai.NewClient(opts...), model: model}
}

func (d *OpenAIDescriber) Describe(ctx context.Context, img *Image) (json.RawMessage, error) {
	resp, err := d.c.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(d.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: img.URI}),
			}),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: status %d", ErrUpstream, apiErr.StatusCode)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	raw := resp.RawJSON()
	if raw == "" {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	return json.RawMessage(raw), nil
}
