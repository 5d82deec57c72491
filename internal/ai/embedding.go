package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

var ErrEmbeddingUnavailable = errors.New("embedding_unavailable")

// EmbeddingClient converts text to fixed-dimension vectors via the Gemini
// embedding API. It does not retry and does not cache; both belong to the
// caller.
type EmbeddingClient struct {
	apiKey  string
	model   string
	dim     int
	timeout time.Duration
}

func NewEmbeddingClient(apiKey, model string, dim int) *EmbeddingClient {
	if model == "" {
		model = "gemini-embedding-001"
	}
	if dim <= 0 {
		dim = 768
	}
	return &EmbeddingClient{
		apiKey:  apiKey,
		model:   model,
		dim:     dim,
		timeout: 15 * time.Second,
	}
}

// Dimension is the length of every vector this client produces.
func (c *EmbeddingClient) Dimension() int {
	return c.dim
}

func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no input text", ErrEmbeddingUnavailable)
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: empty input text", ErrEmbeddingUnavailable)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, c.clientConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}
	dim := int32(c.dim)
	res, err := client.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingUnavailable, len(texts), len(res.Embeddings))
	}

	vecs := make([][]float32, 0, len(texts))
	for _, e := range res.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding in response", ErrEmbeddingUnavailable)
		}
		vecs = append(vecs, e.Values)
	}
	return vecs, nil
}

func (c *EmbeddingClient) clientConfig() *genai.ClientConfig {
	if c.apiKey == "" {
		return nil
	}
	return &genai.ClientConfig{APIKey: c.apiKey, Backend: genai.BackendGeminiAPI}
}

// SearchText builds the canonical embedding text for a listing. Listing
// vectors and query vectors share one embedding space, so this format is
// part of the index compatibility contract.
func SearchText(title, description string, category *string) string {
	parts := []string{
		fmt.Sprintf("Title: %s", title),
		fmt.Sprintf("Description: %s", description),
	}
	if category != nil && strings.TrimSpace(*category) != "" {
		parts = append(parts, fmt.Sprintf("Category: %s", *category))
	}
	return strings.Join(parts, "\n")
}
