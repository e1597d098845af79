package reranker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rossirpaulo/agihouse-hackathon/internal/llm"
)

// maxPromptDocumentLen caps how much of each candidate goes into the prompt.
const maxPromptDocumentLen = 500

// ErrUnparseableScores is returned when the model answer holds no score list.
var ErrUnparseableScores = errors.New("unparseable rerank scores")

// LLMReranker scores query-document pairs by asking a language model.
// Candidates the model does not score are left out of the result.
type LLMReranker struct {
	llmClient llm.LLM
	model     string
}

// LLMRerankerOption is a functional option for configuring LLMReranker.
type LLMRerankerOption func(*LLMReranker)

// WithModel sets the model to use for reranking.
func WithModel(model string) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.model = model
	}
}

// NewLLMReranker creates a new LLM-based reranker.
func NewLLMReranker(llmClient llm.LLM, opts ...LLMRerankerOption) *LLMReranker {
	r := &LLMReranker{
		llmClient: llmClient,
		model:     llm.DefaultModel,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type relevanceScore struct {
	DocIndex int     `json:"doc_index"`
	Score    float32 `json:"score"`
}

type rerankResponse struct {
	Scores []relevanceScore `json:"scores"`
}

// Rerank asks the model for a score per document, then sorts by score and
// keeps the first topK.
func (r *LLMReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error) {
	if len(documents) == 0 {
		return []Result{}, nil
	}

	response, err := r.llmClient.Generate(ctx, buildRerankPrompt(query, documents), llm.GenerateOptions{
		Model:       r.model,
		Temperature: 0.0,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rerank with llm: %w", err)
	}

	results, err := parseRerankResponse(response, len(documents))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

func buildRerankPrompt(query string, documents []string) string {
	var sb strings.Builder

	sb.WriteString("You are a relevance scoring system. Score each document's relevance to the query.\n\n")
	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nDocuments to score:\n")

	for i, doc := range documents {
		if runes := []rune(doc); len(runes) > maxPromptDocumentLen {
			doc = string(runes[:maxPromptDocumentLen]) + "..."
		}
		fmt.Fprintf(&sb, "[Doc %d]: %s\n\n", i, doc)
	}

	sb.WriteString(`Score each document from 0.0 to 1.0 based on relevance to the query.
Output ONLY valid JSON in this exact format:
{"scores": [{"doc_index": 0, "score": 0.9}, {"doc_index": 1, "score": 0.3}, ...]}

Be strict: irrelevant documents should score below 0.3, somewhat relevant 0.3-0.7, highly relevant above 0.7.
Output only JSON, no explanation:`)

	return sb.String()
}

// parseRerankResponse extracts one result per distinct, in-range doc_index.
// Code fences around the JSON are tolerated.
func parseRerankResponse(response string, numDocuments int) ([]Result, error) {
	response = strings.TrimSpace(response)

	for _, fence := range []string{"```json", "```"} {
		if idx := strings.Index(response, fence); idx != -1 {
			start := idx + len(fence)
			if end := strings.Index(response[start:], "```"); end != -1 {
				response = response[start : start+end]
			}
			break
		}
	}

	var parsed rerankResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableScores, err)
	}

	seen := make(map[int]bool, len(parsed.Scores))
	results := make([]Result, 0, len(parsed.Scores))
	for _, s := range parsed.Scores {
		if s.DocIndex < 0 || s.DocIndex >= numDocuments || seen[s.DocIndex] {
			continue
		}
		seen[s.DocIndex] = true
		results = append(results, Result{Index: s.DocIndex, RelevanceScore: min(max(s.Score, 0), 1)})
	}

	return results, nil
}

// Ensure LLMReranker implements Reranker interface.
var _ Reranker = (*LLMReranker)(nil)
