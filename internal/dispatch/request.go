package dispatch

import (
	"context"
	"net/http"
	"time"
)

// Request is the front door's view of one inbound HTTP request, detached
// from the server's ResponseWriter so it can cross the dispatcher channel
// and be consumed by a backend.
type Request struct {
	ctx context.Context

	Method   string
	URI      string // path plus raw query
	Header   http.Header
	Body     []byte
	ClientIP string
	Received time.Time
}

// NewRequest builds a Request carrying ctx, which bounds both the wait for
// steering readiness and the backend round trip.
func NewRequest(ctx context.Context, method, uri string, header http.Header, body []byte, clientIP string) *Request {
	if ctx == nil {
		ctx = context.Background()
	}

	return &Request{
		ctx:      ctx,
		Method:   method,
		URI:      uri,
		Header:   header,
		Body:     body,
		ClientIP: clientIP,
		Received: time.Now(),
	}
}

// Context returns the context the request was created with.
func (r *Request) Context() context.Context {
	return r.ctx
}

// Response is a backend's answer to a Request, fully buffered.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	ServedBy   string // URL of the backend that produced it
}
