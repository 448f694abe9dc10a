package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/tagforge/internal/domain"
	"github.com/phrazzld/tagforge/internal/generation"
	"github.com/phrazzld/tagforge/internal/redact"
)

// maxErrorBodyBytes caps how much of an error response body is kept for the
// error message.
const maxErrorBodyBytes = 2048

// Config holds configuration for an OpenAI-compatible backend.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// Model is the model identifier sent with every request.
	Model string
}

// Client talks to one OpenAI-compatible backend. It implements
// generation.Describer and generation.Prober; the credential secret is
// supplied per call, so a single Client serves a whole credential pool.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the backend described by config.
func New(config Config, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL cannot be empty", generation.ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: model cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		model:      config.Model,
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// metadataSchema is the JSON document the model is asked to produce.
type metadataSchema struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Describe implements generation.Describer.
func (c *Client) Describe(ctx context.Context, asset domain.Asset, cred domain.Credential) (domain.AssetMetadata, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: describeContent(asset),
		}},
	}

	body, err := c.post(ctx, cred.Secret, req)
	if err != nil {
		return domain.AssetMetadata{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.AssetMetadata{}, fmt.Errorf("%w: decoding completion body: %v", generation.ErrInvalidResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return domain.AssetMetadata{}, fmt.Errorf("%w: no choices in completion", generation.ErrInvalidResponse)
	}

	var schema metadataSchema
	content := stripCodeFence(parsed.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &schema); err != nil {
		return domain.AssetMetadata{}, fmt.Errorf("%w: model output is not the expected JSON: %v", generation.ErrInvalidResponse, err)
	}

	meta := domain.AssetMetadata{
		Title:       schema.Title,
		Description: schema.Description,
		Keywords:    schema.Keywords,
	}
	if err := meta.Validate(); err != nil {
		return domain.AssetMetadata{}, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	c.logger.DebugContext(ctx, "asset described",
		"asset_id", asset.ID,
		"model", c.model,
		"keywords", len(meta.Keywords))
	return meta, nil
}

// Probe implements generation.Prober: a minimal one-token completion whose
// only purpose is eliciting the provider's opinion of the secret.
func (c *Client) Probe(ctx context.Context, secret string) error {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: "ping",
		}},
		MaxTokens: 1,
	}

	_, err := c.post(ctx, secret, req)
	return err
}

// post sends one JSON request and returns the response body, mapping
// transport failures to ErrTransient and non-2xx statuses to RequestError.
func (c *Client) post(ctx context.Context, secret string, payload chatRequest) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+secret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", generation.ErrTransient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > maxErrorBodyBytes {
			msg = msg[:maxErrorBodyBytes]
		}
		// Some backends echo request headers back in error bodies.
		return nil, &generation.RequestError{
			StatusCode: resp.StatusCode,
			Message:    redact.String(strings.TrimSpace(msg)),
		}
	}

	return body, nil
}

// describeContent builds the user message for an asset. Payload references
// that are URLs or data URIs ride along as an image part so vision-capable
// models can see the asset; anything else is described by name only.
func describeContent(asset domain.Asset) any {
	prompt := fmt.Sprintf(
		"You are generating stock catalog metadata for a %s named %q. "+
			"Respond with a single JSON object with fields \"title\" (a short, "+
			"specific title), \"description\" (one or two sentences), and "+
			"\"keywords\" (10 to 30 lowercase keywords, most relevant first). "+
			"Respond with JSON only.",
		asset.MediaType, asset.Name)

	if strings.HasPrefix(asset.PayloadRef, "data:") ||
		strings.HasPrefix(asset.PayloadRef, "http://") ||
		strings.HasPrefix(asset.PayloadRef, "https://") {
		return []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: asset.PayloadRef}},
		}
	}
	return prompt
}

// stripCodeFence removes a surrounding markdown code fence, which models
// frequently add despite being told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
