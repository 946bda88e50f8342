package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Identity endpoints. A 401 on any of these never triggers refresh-and-retry.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathRefresh  = "/auth/refresh"
	PathLogout   = "/auth/logout"
	PathMe       = "/auth/me"
	PathStatus   = "/auth/status"
)

var exemptPaths = []string{PathLogin, PathRegister, PathRefresh, PathLogout}

// IsExempt reports whether path addresses one of the identity endpoints.
// Matching is by suffix so both "/auth/login" and "/api/v1/auth/login" qualify.
func IsExempt(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	for _, p := range exemptPaths {
		if path == p || strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// Request is a resendable API call. Path is relative to the gateway base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path, Header: http.Header{}}
}

// NewJSONRequest marshals v as the request body.
func NewJSONRequest(method, path string, v interface{}) (*Request, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	r := NewRequest(method, path)
	r.Body = b
	r.Header.Set("Content-Type", "application/json")
	return r, nil
}

// Response is a fully read backend answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("decode response: empty body (status %d)", r.StatusCode)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response (status %d): %w", r.StatusCode, err)
	}
	return nil
}

// detail extracts a human readable error message from FastAPI ({"detail": ...})
// or gin ({"error": ...}) style bodies, falling back to the raw text.
func (r *Response) detail() string {
	var body struct {
		Detail interface{} `json:"detail"`
		Error  string      `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &body); err == nil {
		if s, ok := body.Detail.(string); ok && s != "" {
			return s
		}
		if body.Error != "" {
			return body.Error
		}
	}
	s := strings.TrimSpace(string(r.Body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
