// Package collab implements the embedding, question-answering and
// named-entity collaborators over HTTP, plus an Anthropic-backed answerer.
package collab

import (
	"time"

	"github.com/crimson-sun/triage/internal/collab/httpclient"
)

// Transport holds the settings shared by every HTTP collaborator.
type Transport struct {
	Token       string
	Timeout     time.Duration
	Retries     int
	RateLimit   float64 // requests per second, 0 = unlimited
	Concurrency int     // in-flight requests, 0 = unlimited
}

func (t Transport) client(endpoint string, extra ...httpclient.Option) *httpclient.Client {
	opts := []httpclient.Option{
		httpclient.WithRetries(t.Retries),
		httpclient.WithRateLimit(t.RateLimit),
		httpclient.WithConcurrency(t.Concurrency),
	}
	if t.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(t.Timeout))
	}
	return httpclient.New(endpoint, t.Token, append(opts, extra...)...)
}
