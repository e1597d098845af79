package reranker

import (
	"context"
	"fmt"

	"github.com/rossirpaulo/agihouse-hackathon/internal/voyage"
)

// DefaultVoyageModel is the default Voyage rerank model.
const DefaultVoyageModel = "rerank-2"

// VoyageReranker implements Reranker using the Voyage AI rerank API.
// Results come back in the order the API sends them.
type VoyageReranker struct {
	client *voyage.Client
	model  string
}

type voyageRerankRequest struct {
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	Model           string   `json:"model"`
	TopK            int      `json:"top_k,omitempty"`
	ReturnDocuments bool     `json:"return_documents"`
}

type voyageRerankResponse struct {
	Data []struct {
		Index          int     `json:"index"`
		RelevanceScore float32 `json:"relevance_score"`
	} `json:"data"`
	Model string `json:"model"`
}

// NewVoyageReranker creates a Voyage reranker. An empty model selects
// DefaultVoyageModel.
func NewVoyageReranker(client *voyage.Client, model string) (*VoyageReranker, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: voyage client is required", ErrInvalidConfig)
	}
	if model == "" {
		model = DefaultVoyageModel
	}
	return &VoyageReranker{client: client, model: model}, nil
}

// Rerank sends the candidates to Voyage and returns its ranking.
func (r *VoyageReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error) {
	if len(documents) == 0 {
		return []Result{}, nil
	}

	req := voyageRerankRequest{
		Query:     query,
		Documents: documents,
		Model:     r.model,
		TopK:      topK,
	}

	var resp voyageRerankResponse
	if err := r.client.Post(ctx, "/rerank", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to rerank: %w", err)
	}

	results := make([]Result, 0, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(documents) {
			continue
		}
		results = append(results, Result{Index: item.Index, RelevanceScore: item.RelevanceScore})
	}

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// Ensure VoyageReranker implements Reranker interface.
var _ Reranker = (*VoyageReranker)(nil)
