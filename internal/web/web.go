// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// defaultResponseSizeLimit bounds how much of a response body is read.
const defaultResponseSizeLimit = 1 << 20 // 1 MiB.

// StatusError describes a non-2xx response. Body holds the response text
// verbatim, bounded by the size limit.
type StatusError struct {
	Code int
	Body string
}

// Error returns error description.
func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// RequestOption is an optional argument to the request helpers.
type RequestOption struct {
	responseSizeLimit int64
	header            *[2]string
}

// WithSizeLimit sets a size limit for a response.
func WithSizeLimit(limit int64) *RequestOption {
	return &RequestOption{responseSizeLimit: limit}
}

// WithHeader adds a header entry to the request.
func WithHeader(k, v string) *RequestOption {
	h := [2]string{k, v}
	return &RequestOption{header: &h}
}

// GetJSON performs an HTTP GET request and JSON-unmarshals the response into
// thing, if non-nil.
func GetJSON(ctx context.Context, uri string, thing any, opts ...*RequestOption) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fmt.Errorf("error constructing request: %w", err)
	}

	return do(req, thing, opts...)
}

// PostJSON performs an HTTP POST request with a JSON body and JSON-unmarshals
// the response into thing, if non-nil.
func PostJSON(ctx context.Context, uri string, body, thing any, opts ...*RequestOption) error {
	return sendJSON(ctx, http.MethodPost, uri, body, thing, opts...)
}

// PatchJSON performs an HTTP PATCH request with a JSON body and
// JSON-unmarshals the response into thing, if non-nil.
func PatchJSON(ctx context.Context, uri string, body, thing any, opts ...*RequestOption) error {
	return sendJSON(ctx, http.MethodPatch, uri, body, thing, opts...)
}

// PostText performs an HTTP POST request with a text/plain body and returns
// the trimmed response body.
func PostText(ctx context.Context, uri, body string, opts ...*RequestOption) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error constructing request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	var text string
	err = do(req, &text, opts...)

	return text, err
}

func sendJSON(ctx context.Context, method, uri string, body, thing any, opts ...*RequestOption) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("error constructing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return do(req, thing, opts...)
}

// do performs the request. If thing is a *string the body is stored verbatim,
// otherwise the body is JSON-unmarshaled into thing, if non-nil. Non-2xx
// responses produce a *StatusError with the body text preserved.
func do(req *http.Request, thing any, opts ...*RequestOption) error {
	var sizeLimit int64 = defaultResponseSizeLimit
	for _, opt := range opts {
		switch {
		case opt.responseSizeLimit > 0:
			sizeLimit = opt.responseSizeLimit
		case opt.header != nil:
			h := *opt.header
			req.Header.Set(h[0], h[1])
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, sizeLimit))
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	switch out := thing.(type) {
	case nil:
	case *string:
		*out = strings.TrimSpace(string(raw))
	default:
		if err = json.Unmarshal(raw, thing); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}
