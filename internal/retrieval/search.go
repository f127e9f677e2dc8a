// Package retrieval wraps the vector-search collaborator. The backing
// index is opaque; the engine only sees ranked hits. An empty result set
// is a valid, non-error outcome.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"aitutor/internal/types"
)

// SearchOptions scope a search call. Subject filtering is how the planner
// enforces the session's subject lock.
type SearchOptions struct {
	Subject  string
	Syllabus string
	Limit    int
}

// Searcher is the retrieval collaborator contract.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]types.RetrievalHit, error)
}

// HTTPSearcher talks to the retrieval service over HTTP.
type HTTPSearcher struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewHTTPSearcher creates a Searcher against the given service base URL.
func NewHTTPSearcher(baseURL string, timeout time.Duration, log *zap.Logger) *HTTPSearcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSearcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.Named("retrieval"),
	}
}

type searchRequest struct {
	Query    string `json:"query"`
	Subject  string `json:"subject,omitempty"`
	Syllabus string `json:"syllabus,omitempty"`
	Limit    int    `json:"limit"`
}

type searchResponse struct {
	Results []types.RetrievalHit `json:"results"`
}

// Search runs a subject-scoped similarity query.
func (s *HTTPSearcher) Search(ctx context.Context, query string, opts SearchOptions) ([]types.RetrievalHit, error) {
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	body, err := json.Marshal(searchRequest{
		Query:    query,
		Subject:  opts.Subject,
		Syllabus: opts.Syllabus,
		Limit:    opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	s.log.Debug("search complete",
		zap.String("subject", opts.Subject),
		zap.Int("hits", len(out.Results)),
		zap.Duration("elapsed", time.Since(start)))
	return out.Results, nil
}
