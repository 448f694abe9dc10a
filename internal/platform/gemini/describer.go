package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"

	"google.golang.org/genai"

	"github.com/phrazzld/tagforge/internal/domain"
	"github.com/phrazzld/tagforge/internal/generation"
	"github.com/phrazzld/tagforge/internal/redact"
)

// defaultPromptTemplate asks for the strict JSON document parseMetadata
// expects. Callers may override it with their own template using the same
// fields.
const defaultPromptTemplate = `You are generating stock catalog metadata for a {{.MediaType}} named "{{.Name}}" ({{.PayloadRef}}).
Respond with a single JSON object with fields "title" (a short, specific title),
"description" (one or two sentences), and "keywords" (10 to 30 lowercase
keywords, most relevant first). Respond with JSON only.`

// Config holds configuration for the Gemini describer.
type Config struct {
	// Model is the Gemini model identifier, e.g. "gemini-2.0-flash".
	Model string

	// PromptTemplate overrides the default prompt. It is parsed as a
	// text/template with fields Name, MediaType and PayloadRef.
	PromptTemplate string
}

// promptData is the template payload for one asset.
type promptData struct {
	Name       string
	MediaType  domain.MediaType
	PayloadRef string
}

// Describer implements generation.Describer and generation.Prober against
// the Gemini API.
type Describer struct {
	model          string
	promptTemplate *template.Template
	logger         *slog.Logger

	// one genai client per API key, created on first use
	mu      sync.Mutex
	clients map[string]*genai.Client
}

// New creates a Describer for the given model.
func New(config Config, logger *slog.Logger) (*Describer, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("%w: model cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	text := config.PromptTemplate
	if text == "" {
		text = defaultPromptTemplate
	}
	tmpl, err := template.New("metadata").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing prompt template: %v", generation.ErrInvalidConfig, err)
	}

	return &Describer{
		model:          config.Model,
		promptTemplate: tmpl,
		logger:         logger,
		clients:        make(map[string]*genai.Client),
	}, nil
}

// Describe implements generation.Describer.
func (d *Describer) Describe(ctx context.Context, asset domain.Asset, cred domain.Credential) (domain.AssetMetadata, error) {
	client, err := d.clientFor(ctx, cred.Secret)
	if err != nil {
		return domain.AssetMetadata{}, err
	}

	prompt, err := d.renderPrompt(asset)
	if err != nil {
		return domain.AssetMetadata{}, err
	}

	resp, err := client.Models.GenerateContent(ctx, d.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return domain.AssetMetadata{}, mapAPIError(err)
	}

	text, err := responseText(resp)
	if err != nil {
		return domain.AssetMetadata{}, err
	}

	meta, err := parseMetadata(text)
	if err != nil {
		return domain.AssetMetadata{}, err
	}

	d.logger.DebugContext(ctx, "asset described",
		"asset_id", asset.ID,
		"model", d.model,
		"keywords", len(meta.Keywords))
	return meta, nil
}

// Probe implements generation.Prober: the cheapest possible generation call,
// made only to learn what the provider thinks of the API key.
func (d *Describer) Probe(ctx context.Context, secret string) error {
	client, err := d.clientFor(ctx, secret)
	if err != nil {
		return err
	}

	_, err = client.Models.GenerateContent(ctx, d.model, genai.Text("ping"), nil)
	if err != nil {
		return mapAPIError(err)
	}
	return nil
}

// clientFor returns the cached genai client for an API key, creating it on
// first use.
func (d *Describer) clientFor(ctx context.Context, secret string) (*genai.Client, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", generation.ErrInvalidConfig)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if client, ok := d.clients[secret]; ok {
		return client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  secret,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	d.clients[secret] = client
	return client, nil
}

// renderPrompt executes the prompt template for one asset.
func (d *Describer) renderPrompt(asset domain.Asset) (string, error) {
	var buf bytes.Buffer
	err := d.promptTemplate.Execute(&buf, promptData{
		Name:       asset.Name,
		MediaType:  asset.MediaType,
		PayloadRef: asset.PayloadRef,
	})
	if err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}
	return buf.String(), nil
}

// mapAPIError translates genai errors onto the generation taxonomy: API
// rejections keep their status code, everything else is a transient
// network-level failure.
func mapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &generation.RequestError{
			StatusCode: apiErr.Code,
			Message:    redact.String(apiErr.Message),
		}
	}
	return fmt.Errorf("%w: %v", generation.ErrTransient, err)
}

// responseText extracts the concatenated text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, cand.FinishReason)
	}
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content in candidate", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text parts in candidate", generation.ErrInvalidResponse)
	}
	return sb.String(), nil
}

// parseMetadata decodes the model's JSON document into validated metadata.
func parseMetadata(text string) (domain.AssetMetadata, error) {
	var schema struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(text), &schema); err != nil {
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
	return meta, nil
}
