// testing/testing.go

// Package testing has helpers for exercising handlers over a real
// httptest server with fluent request building and response assertions.
package testing

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// Server wraps httptest.Server.
type Server struct {
	*httptest.Server
	t *testing.T
}

// NewServer starts a test server for h, closed when the test ends.
func NewServer(t *testing.T, h http.Handler) *Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Server{Server: srv, t: t}
}

// WSURL returns the server URL with a ws scheme, joined with path.
func (s *Server) WSURL(path string) string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + path
}

// Request creates a request builder for the server.
func (s *Server) Request(method, path string) *RequestBuilder {
	return &RequestBuilder{server: s, method: method, path: path, header: make(http.Header)}
}

// Get creates a GET request builder.
func (s *Server) Get(path string) *RequestBuilder {
	return s.Request(http.MethodGet, path)
}

// Post creates a POST request builder.
func (s *Server) Post(path string) *RequestBuilder {
	return s.Request(http.MethodPost, path)
}

// RequestBuilder builds and executes one request.
type RequestBuilder struct {
	server *Server
	method string
	path   string
	header http.Header
	body   io.Reader
}

// Header sets a request header.
func (rb *RequestBuilder) Header(key, value string) *RequestBuilder {
	rb.header.Set(key, value)
	return rb
}

// BodyString sets the request body.
func (rb *RequestBuilder) BodyString(body string) *RequestBuilder {
	rb.body = strings.NewReader(body)
	return rb
}

// JSON sets a JSON body and Content-Type.
func (rb *RequestBuilder) JSON(v any) *RequestBuilder {
	rb.server.t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		rb.server.t.Fatalf("failed to marshal JSON: %v", err)
	}
	rb.body = strings.NewReader(string(b))
	rb.header.Set("Content-Type", "application/json")
	return rb
}

// Form sets a urlencoded form body and Content-Type.
func (rb *RequestBuilder) Form(data url.Values) *RequestBuilder {
	rb.body = strings.NewReader(data.Encode())
	rb.header.Set("Content-Type", "application/x-www-form-urlencoded")
	return rb
}

// Do executes the request and reads the whole response.
func (rb *RequestBuilder) Do() *Response {
	t := rb.server.t
	t.Helper()

	req, err := http.NewRequest(rb.method, rb.server.URL+rb.path, rb.body)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header = rb.header

	resp, err := rb.server.Client().Do(req)
	if err != nil {
		t.Fatalf("failed to execute request: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return &Response{Response: resp, Body: body, t: t}
}

// Response wraps http.Response with assertion methods.
type Response struct {
	*http.Response
	Body []byte
	t    *testing.T
}

// Status asserts the response status code.
func (r *Response) Status(code int) *Response {
	r.t.Helper()
	if r.StatusCode != code {
		r.t.Errorf("expected status %d, got %d\nBody: %s", code, r.StatusCode, string(r.Body))
	}
	return r
}

// StatusOK asserts 200 OK.
func (r *Response) StatusOK() *Response {
	return r.Status(http.StatusOK)
}

// HeaderContains asserts a header contains a substring.
func (r *Response) HeaderContains(key, substr string) *Response {
	r.t.Helper()
	if actual := r.Header.Get(key); !strings.Contains(actual, substr) {
		r.t.Errorf("expected header %s to contain %q, got %q", key, substr, actual)
	}
	return r
}

// ContentTypeJSON asserts Content-Type is application/json.
func (r *Response) ContentTypeJSON() *Response {
	return r.HeaderContains("Content-Type", "application/json")
}

// BodyContains asserts the body contains a substring.
func (r *Response) BodyContains(substr string) *Response {
	r.t.Helper()
	if !strings.Contains(string(r.Body), substr) {
		r.t.Errorf("expected body to contain %q, got %q", substr, string(r.Body))
	}
	return r
}

// BodyNotContains asserts the body does not contain a substring.
func (r *Response) BodyNotContains(substr string) *Response {
	r.t.Helper()
	if strings.Contains(string(r.Body), substr) {
		r.t.Errorf("expected body not to contain %q, got %q", substr, string(r.Body))
	}
	return r
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) *Response {
	r.t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		r.t.Fatalf("failed to unmarshal JSON: %v\nBody: %s", err, string(r.Body))
	}
	return r
}
