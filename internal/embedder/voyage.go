package embedder

import (
	"context"
	"fmt"

	"github.com/rossirpaulo/agihouse-hackathon/internal/voyage"
)

// DefaultVoyageModel is the default Voyage embedding model.
const DefaultVoyageModel = "voyage-3"

// VoyageProvider implements Provider using the Voyage AI embeddings API.
type VoyageProvider struct {
	client *voyage.Client
	model  string
}

// voyageRequest represents the request body for the Voyage embeddings API.
type voyageRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	InputType  string   `json:"input_type"`
	Truncation bool     `json:"truncation"`
}

// voyageResponse represents the response from the Voyage embeddings API.
type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewVoyageProvider creates a Voyage embedding provider. An empty model
// selects DefaultVoyageModel.
func NewVoyageProvider(client *voyage.Client, model string) (*VoyageProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: voyage client is required", ErrInvalidConfig)
	}
	if model == "" {
		model = DefaultVoyageModel
	}
	return &VoyageProvider{client: client, model: model}, nil
}

// Embed requests embeddings for inputs. Vectors are placed by the index the
// API reports; inputs without one stay nil.
func (p *VoyageProvider) Embed(ctx context.Context, inputs []string, inputType InputType) ([][]float32, error) {
	req := voyageRequest{
		Input:      inputs,
		Model:      p.model,
		InputType:  string(inputType),
		Truncation: true,
	}

	var resp voyageResponse
	if err := p.client.Post(ctx, "/embeddings", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(inputs))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(inputs) {
			continue
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// ModelName returns the name of the embedding model being used.
func (p *VoyageProvider) ModelName() string {
	return p.model
}

// Ensure VoyageProvider implements Provider interface.
var _ Provider = (*VoyageProvider)(nil)
