package reranker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rossirpaulo/agihouse-hackathon/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	response string
	err      error
	prompt   string
	opts     llm.GenerateOptions
}

func (s *stubLLM) Generate(_ context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	s.prompt = prompt
	s.opts = opts
	return s.response, s.err
}

func TestLLMReranker_Rerank(t *testing.T) {
	tests := []struct {
		name     string
		response string
		topK     int
		want     []Result
	}{
		{
			name:     "sorted by score and capped",
			response: `{"scores":[{"doc_index":0,"score":0.2},{"doc_index":1,"score":0.9},{"doc_index":2,"score":0.5}]}`,
			topK:     2,
			want:     []Result{{Index: 1, RelevanceScore: 0.9}, {Index: 2, RelevanceScore: 0.5}},
		},
		{
			name:     "fenced json",
			response: "Here you go:\n```json\n{\"scores\":[{\"doc_index\":2,\"score\":0.7}]}\n```",
			topK:     5,
			want:     []Result{{Index: 2, RelevanceScore: 0.7}},
		},
		{
			name:     "out of range and duplicate indexes dropped, scores clamped",
			response: `{"scores":[{"doc_index":9,"score":0.9},{"doc_index":0,"score":1.4},{"doc_index":0,"score":0.1},{"doc_index":1,"score":-2}]}`,
			topK:     5,
			want:     []Result{{Index: 0, RelevanceScore: 1}, {Index: 1, RelevanceScore: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubLLM{response: tt.response}
			r := NewLLMReranker(stub, WithModel("mistral"))

			results, err := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, tt.topK)
			require.NoError(t, err)
			assert.Equal(t, tt.want, results)
			assert.Equal(t, "mistral", stub.opts.Model)
		})
	}
}

func TestLLMReranker_PromptTruncatesDocuments(t *testing.T) {
	stub := &stubLLM{response: `{"scores":[]}`}
	long := strings.Repeat("x", maxPromptDocumentLen+50)

	_, err := NewLLMReranker(stub).Rerank(context.Background(), "what is x", []string{long}, 1)
	require.NoError(t, err)

	assert.Contains(t, stub.prompt, "Query: what is x")
	assert.Contains(t, stub.prompt, "[Doc 0]: "+strings.Repeat("x", maxPromptDocumentLen)+"...")
	assert.NotContains(t, stub.prompt, strings.Repeat("x", maxPromptDocumentLen+1))
}

func TestLLMReranker_Errors(t *testing.T) {
	t.Run("unparseable", func(t *testing.T) {
		_, err := NewLLMReranker(&stubLLM{response: "I think doc 1"}).Rerank(context.Background(), "q", []string{"a"}, 1)
		assert.ErrorIs(t, err, ErrUnparseableScores)
	})

	t.Run("generate failure", func(t *testing.T) {
		boom := errors.New("ollama down")
		_, err := NewLLMReranker(&stubLLM{err: boom}).Rerank(context.Background(), "q", []string{"a"}, 1)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no documents", func(t *testing.T) {
		stub := &stubLLM{err: errors.New("must not be called")}
		results, err := NewLLMReranker(stub).Rerank(context.Background(), "q", nil, 1)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
