package collab

import (
	"context"
	"fmt"

	"github.com/crimson-sun/triage/internal/collab/httpclient"
	"github.com/crimson-sun/triage/internal/model"
)

type entitiesRequest struct {
	Text string `json:"text"`
}

// HTTPEntityDetector calls a remote named-entity service: POST /entities.
type HTTPEntityDetector struct {
	client *httpclient.Client
}

// NewHTTPEntityDetector creates a detector for the service at endpoint.
func NewHTTPEntityDetector(endpoint string, t Transport, opts ...httpclient.Option) *HTTPEntityDetector {
	return &HTTPEntityDetector{client: t.client(endpoint, opts...)}
}

func (d *HTTPEntityDetector) DetectEntities(ctx context.Context, text string) ([]model.Entity, error) {
	var resp []model.Entity
	if err := d.client.PostJSON(ctx, "/entities", entitiesRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("collab: entities: %w: %w", model.ErrCollaborator, err)
	}
	return resp, nil
}
