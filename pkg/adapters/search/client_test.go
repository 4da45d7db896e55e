package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/quill/pkg/adapters/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tides", body["query"])
		assert.EqualValues(t, 2, body["max_results"])

		_, _ = w.Write([]byte(`{"results":[
			{"title":"Tides","url":"https://example.org/tides","content":" The moon pulls. "},
			{"title":"","url":"","content":"Untitled"},
			{"title":"Extra","url":"https://example.org/extra","content":"ignored"}
		]}`))
	}))
	defer srv.Close()

	out, err := search.New("key", search.WithBaseURL(srv.URL)).Search(context.Background(), "tides", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Tides (https://example.org/tides): The moon pulls.",
		"Untitled",
	}, out)
}

func TestSearch_Errors(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadRequest} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", status)
		}))

		_, err := search.New("key", search.WithBaseURL(srv.URL)).Search(context.Background(), "q", 1)
		srv.Close()

		var apiErr *search.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, status, apiErr.StatusCode)
		assert.Equal(t, "nope", apiErr.Message)
		assert.Equal(t, status == http.StatusTooManyRequests, apiErr.Temporary())
	}
}

func TestSearch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := search.New("key", search.WithBaseURL(url)).Search(context.Background(), "q", 1)

	var apiErr *search.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Temporary())
}
