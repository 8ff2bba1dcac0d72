// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"bridge/internal/web"
)

func TestJSONHelpers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "v", r.Header.Get("X-Custom"))

		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"in":1}`, string(body))

		_, _ = w.Write([]byte(`{"out":2}`))
	}))
	defer server.Close()

	var resp struct {
		Out int `json:"out"`
	}
	err := web.PostJSON(context.Background(), server.URL, map[string]int{"in": 1}, &resp,
		web.WithHeader("X-Custom", "v"))
	require.NoError(t, err)
	require.Equal(t, 2, resp.Out)
}

func TestPostText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte("  result \n"))
	}))
	defer server.Close()

	text, err := web.PostText(context.Background(), server.URL, "payload")
	require.NoError(t, err)
	require.Equal(t, "result", text)
}

func TestStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout\n"))
	}))
	defer server.Close()

	err := web.GetJSON(context.Background(), server.URL, nil)

	var statusErr *web.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTeapot, statusErr.Code)
	// the body text is preserved verbatim, trimmed of surrounding whitespace.
	require.Equal(t, "short and stout", statusErr.Body)
}

func TestSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	err := web.GetJSON(context.Background(), server.URL, nil, web.WithSizeLimit(4))

	var statusErr *web.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "0123", statusErr.Body)
}
