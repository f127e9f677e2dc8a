package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"aitutor/internal/types"
)

func TestSearchSendsSubjectScope(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(searchResponse{Results: []types.RetrievalHit{
			{Subject: "ict", Chapter: "Hardware", Score: 0.82},
		}})
	}))
	defer srv.Close()

	s := NewHTTPSearcher(srv.URL, time.Second, zaptest.NewLogger(t))
	hits, err := s.Search(context.Background(), "what is a cpu", SearchOptions{
		Subject:  "ict",
		Syllabus: "ordinary",
		Limit:    3,
	})
	require.NoError(t, err)

	assert.Equal(t, "what is a cpu", got.Query)
	assert.Equal(t, "ict", got.Subject)
	assert.Equal(t, "ordinary", got.Syllabus)
	assert.Equal(t, 3, got.Limit)
	require.Len(t, hits, 1)
	assert.Equal(t, "Hardware", hits[0].Chapter)
}

func TestSearchDefaultsLimit(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer srv.Close()

	s := NewHTTPSearcher(srv.URL, time.Second, zaptest.NewLogger(t))
	hits, err := s.Search(context.Background(), "anything", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits, "no results is a valid outcome, not an error")
	assert.Equal(t, 5, got.Limit)
}

func TestSearchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewHTTPSearcher(srv.URL, time.Second, zaptest.NewLogger(t))
	_, err := s.Search(context.Background(), "anything", SearchOptions{})
	assert.Error(t, err)
}

func TestSearchUnreachableService(t *testing.T) {
	s := NewHTTPSearcher("http://127.0.0.1:1", 200*time.Millisecond, zaptest.NewLogger(t))
	_, err := s.Search(context.Background(), "anything", SearchOptions{})
	assert.Error(t, err)
}
