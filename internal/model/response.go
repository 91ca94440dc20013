package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
)

// Unknown is the sentinel used when a response carries no Content-Length or
// Server header. Filters compare it as a plain string.
const Unknown = "UNK"

// Response is a normalized HTTP response.
type Response struct {
	// URL is the requested URL.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains all response headers.
	Headers http.Header `json:"headers"`

	// Body is the raw response body, truncated to the configured limit.
	Body []byte `json:"-"`

	// ContentLength is the Content-Length header value, or Unknown.
	ContentLength string `json:"content_length"`

	// Server is the Server header value, or Unknown.
	Server string `json:"server"`

	// ContentType is the Content-Type header value. Empty when absent.
	ContentType string `json:"content_type,omitempty"`
}

// NewResponse builds a Response and normalizes the Content-Length and Server
// fields to Unknown when the headers are missing.
func NewResponse(url string, statusCode int, headers http.Header, body []byte) *Response {
	if headers == nil {
		headers = http.Header{}
	}
	r := &Response{
		URL:           url,
		StatusCode:    statusCode,
		Headers:       headers,
		Body:          body,
		ContentLength: headers.Get("Content-Length"),
		Server:        headers.Get("Server"),
		ContentType:   headers.Get("Content-Type"),
	}
	if r.ContentLength == "" {
		r.ContentLength = Unknown
	}
	if r.Server == "" {
		r.Server = Unknown
	}
	return r
}

// Status returns the status code as a string, the form used by filters.
func (r *Response) Status() string {
	return strconv.Itoa(r.StatusCode)
}

// BodyHash returns the SHA-256 hash of the body as a hex string.
func (r *Response) BodyHash() string {
	hash := sha256.Sum256(r.Body)
	return hex.EncodeToString(hash[:])
}
