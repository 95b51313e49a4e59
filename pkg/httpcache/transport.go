package httpcache

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Transport is an http.RoundTripper that answers repeated GET requests from a Store.
// Only 200 responses are cached; everything else goes straight to Base.
type Transport struct {
	Store  *Store
	Base   http.RoundTripper
	Logger *slog.Logger
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Store == nil || req.Method != http.MethodGet {
		return t.base().RoundTrip(req)
	}

	url := req.URL.String()
	if data, etag, ok := t.Store.Get(url); ok {
		resp := &http.Response{
			Status:        "200 OK",
			StatusCode:    http.StatusOK,
			Proto:         "HTTP/1.1",
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        make(http.Header),
			Body:          io.NopCloser(bytes.NewReader(data)),
			ContentLength: int64(len(data)),
			Request:       req,
		}
		resp.Header.Set("Content-Type", "application/json; charset=UTF-8")
		resp.Header.Set("X-From-Cache", "true")
		if etag != "" {
			resp.Header.Set("ETag", etag)
		}
		return resp, nil
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.logger().Debug("failed to close response body", "error", closeErr)
	}
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	t.Store.Set(url, body, resp.Header.Get("ETag"))
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
