package vision

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/erikakettleson-openai/erika-webrtc/pkg/types"
)

// GeminiDescriber uses the Gemini API and reshapes the answer into the chat
// completion form the upload endpoint promises.
type GeminiDescriber struct {
	c     *genai.Client
	model string
}

func NewGeminiDescriber(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiDescriber, error) {
	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2: false,
		MaxIdleConns:      100,
		IdleConnTimeout:   90 * time.Second,
	}
	hc := &http.Client{Transport: tr, Timeout: timeout}
	opts := genai.HTTPOptions{APIVersion: "v1"}
	if timeout > 0 {
		opts.Timeout = &timeout
	}
	cl, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  hc,
		HTTPOptions: opts,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiDescriber{c: cl, model: model}, nil
}

func (g *GeminiDescriber) Describe(ctx context.Context, img *Image) (json.RawMessage, error) {
	parts := []*genai.Part{
		{Text: Prompt},
		{InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType}},
	}
	temp := float32(0.2)
	resp, err := g.c.Models.GenerateContent(ctx, g.model, []*genai.Content{{Role: genai.RoleUser, Parts: parts}}, &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return json.Marshal(completionFromGemini(resp, g.model))
}

func completionFromGemini(resp *genai.GenerateContentResponse, model string) types.ChatCompletion {
	out := types.ChatCompletion{Object: "chat.completion", Model: model, Choices: []types.ChatChoice{}}
	if resp == nil {
		return out
	}
	out.ID = resp.ResponseID
	for i, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var text string
		for _, p := range cand.Content.Parts {
			if p != nil && p.Text != "" && !p.Thought {
				text += p.Text
			}
		}
		if text == "" {
			continue
		}
		out.Choices = append(out.Choices, types.ChatChoice{
			Index:        i,
			Message:      types.ChatMessage{Role: "assistant", Content: text},
			FinishReason: string(cand.FinishReason),
		})
	}
	return out
}
