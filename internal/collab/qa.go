package collab

import (
	"context"
	"fmt"

	"github.com/crimson-sun/triage/internal/collab/httpclient"
	"github.com/crimson-sun/triage/internal/model"
)

type answerRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// HTTPAnswerer calls a remote extractive question-answering service: POST /answer.
type HTTPAnswerer struct {
	client *httpclient.Client
}

// NewHTTPAnswerer creates an answerer for the service at endpoint.
func NewHTTPAnswerer(endpoint string, t Transport, opts ...httpclient.Option) *HTTPAnswerer {
	return &HTTPAnswerer{client: t.client(endpoint, opts...)}
}

func (a *HTTPAnswerer) Answer(ctx context.Context, question, passage string) (model.Answer, error) {
	var resp model.Answer
	if err := a.client.PostJSON(ctx, "/answer", answerRequest{Question: question, Context: passage}, &resp); err != nil {
		return model.Answer{}, fmt.Errorf("collab: answer: %w: %w", model.ErrCollaborator, err)
	}
	return resp, nil
}
