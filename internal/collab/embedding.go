package collab

import (
	"context"
	"fmt"

	"github.com/crimson-sun/triage/internal/collab/httpclient"
	"github.com/crimson-sun/triage/internal/model"
)

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HTTPEmbedder calls a remote embedding service: POST /embed.
type HTTPEmbedder struct {
	client *httpclient.Client
}

// NewHTTPEmbedder creates an embedder for the service at endpoint.
func NewHTTPEmbedder(endpoint string, t Transport, opts ...httpclient.Option) *HTTPEmbedder {
	return &HTTPEmbedder{client: t.client(endpoint, opts...)}
}

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per input, in input order.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embedResponse
	if err := e.client.PostJSON(ctx, "/embed", embedRequest{Inputs: texts}, &resp); err != nil {
		return nil, fmt.Errorf("collab: embed: %w: %w", model.ErrCollaborator, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("collab: embed: got %d vectors for %d inputs: %w",
			len(resp.Embeddings), len(texts), model.ErrCollaborator)
	}
	return resp.Embeddings, nil
}

func (e *HTTPEmbedder) Close() error { return nil }
