package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOllamaBaseURL is the default Ollama API base URL.
	DefaultOllamaBaseURL = "http://localhost:11434"

	// DefaultOllamaModel is the default embedding model.
	DefaultOllamaModel = "nomic-embed-text"
)

// OllamaConfig holds configuration for the Ollama embedder.
type OllamaConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// QueryPrefix and DocumentPrefix are prepended to inputs to signal the
	// input type. Both default to the nomic task prefixes for nomic models.
	QueryPrefix    string
	DocumentPrefix string

	// Timeout is used when HTTPClient is nil (default: 60s).
	Timeout time.Duration

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// OllamaProvider implements Provider using Ollama's batch embed API.
type OllamaProvider struct {
	baseURL  string
	model    string
	prefixes map[InputType]string
	client   *http.Client
}

// ollamaRequest represents the request body for Ollama's /api/embed.
type ollamaRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Truncate bool     `json:"truncate"`
}

// ollamaResponse represents the response from Ollama's /api/embed.
type ollamaResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaProvider creates a new Ollama embedding provider.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}

	queryPrefix, documentPrefix := cfg.QueryPrefix, cfg.DocumentPrefix
	if queryPrefix == "" && documentPrefix == "" && strings.HasPrefix(model, "nomic-embed") {
		queryPrefix, documentPrefix = "search_query: ", "search_document: "
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		prefixes: map[InputType]string{
			InputTypeQuery:    queryPrefix,
			InputTypeDocument: documentPrefix,
		},
		client: client,
	}
}

// Embed generates embeddings for all inputs in a single request.
func (p *OllamaProvider) Embed(ctx context.Context, inputs []string, inputType InputType) ([][]float32, error) {
	prefix := p.prefixes[inputType]
	prefixed := make([]string, len(inputs))
	for i, input := range inputs {
		prefixed[i] = prefix + input
	}

	jsonBody, err := json.Marshal(ollamaRequest{
		Model:    p.model,
		Input:    prefixed,
		Truncate: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embed", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(ollamaResp.Embeddings) == 0 {
		return nil, nil
	}

	// Ollama answers positionally; pad so a short answer reads as absent vectors.
	vectors := make([][]float32, len(inputs))
	copy(vectors, ollamaResp.Embeddings)
	return vectors, nil
}

// ModelName returns the name of the embedding model being used.
func (p *OllamaProvider) ModelName() string {
	return p.model
}

// Ensure OllamaProvider implements Provider interface.
var _ Provider = (*OllamaProvider)(nil)
