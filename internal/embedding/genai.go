package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/benkyo/pkg/utils"
	"google.golang.org/genai"
)

const (
	DefaultGenAIModel      = "gemini-embedding-001"
	DefaultGenAIDimensions = 768
	// maxBatch is the API's per-request content limit.
	maxBatch = 100
)

type embedContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)

// GenAIEmbedder embeds text with the Gemini embedding API.
type GenAIEmbedder struct {
	embed      embedContentFunc
	model      string
	dimensions int
}

// NewGenAIEmbedder creates an embedder backed by the Gemini API.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string, dimensions int) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGenAIEmbedder(client.Models.EmbedContent, model, dimensions), nil
}

func newGenAIEmbedder(fn embedContentFunc, model string, dimensions int) *GenAIEmbedder {
	if model == "" {
		model = DefaultGenAIModel
	}
	if dimensions <= 0 {
		dimensions = DefaultGenAIDimensions
	}
	return &GenAIEmbedder{embed: fn, model: model, dimensions: dimensions}
}

// Embed embeds a retrieval query.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.call(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds chunk texts in requests of at most maxBatch contents.
func (e *GenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := e.call(ctx, texts[start:end], "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *GenAIEmbedder) call(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	dims := int32(e.dimensions)
	result, err := e.embed(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("GenAI embed returned %d embeddings for %d texts", got, len(texts))
	}
	vecs := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) != e.dimensions {
			return nil, fmt.Errorf("GenAI embed returned malformed embedding %d", i)
		}
		v := make([]float32, len(emb.Values))
		copy(v, emb.Values)
		// Truncated outputs are not unit length; inner product search needs them to be.
		utils.NormalizeL2(v)
		vecs[i] = v
	}
	return vecs, nil
}

// Dimensions returns the configured output dimensionality.
func (e *GenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the GenAI client holds no resources that need releasing.
func (e *GenAIEmbedder) Close() error {
	return nil
}
