package backend

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/angeloszaimis/steer/internal/circuitbreaker"
	"github.com/angeloszaimis/steer/internal/dispatch"
	"github.com/angeloszaimis/steer/pkg/future"
	"github.com/angeloszaimis/steer/pkg/steer"
)

const ewmaAlpha = 0.2

// Backend is a steer.Handler backed by an upstream HTTP server. It is
// ready when it is healthy, its circuit breaker allows traffic, and an
// in-flight slot is free. While not ready it retains the caller's waker
// and fires it when a slot is released, health comes back, or the breaker
// reset timeout passes.
type Backend struct {
	url     *url.URL
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker

	mutex            sync.Mutex
	healthy          bool
	inflight         int
	capacity         int
	ewmaResponseTime time.Duration
	hasEWMA          bool
	wake             steer.Waker
}

// New creates a Backend for the given upstream URL with at most capacity
// in-flight requests. The backend starts healthy.
func New(u *url.URL, capacity int, breaker *circuitbreaker.CircuitBreaker, client *http.Client) *Backend {
	if client == nil {
		client = http.DefaultClient
	}

	return &Backend{
		url:      u,
		client:   client,
		breaker:  breaker,
		healthy:  true,
		capacity: capacity,
	}
}

// PollReady implements steer.Handler.
func (b *Backend) PollReady(wake steer.Waker) (steer.Poll, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.healthy || b.inflight >= b.capacity {
		b.wake = wake
		return steer.Pending, nil
	}

	if b.breaker != nil && !b.breaker.Allow() {
		b.wake = wake
		if d := b.breaker.RetryAfter(); d > 0 {
			time.AfterFunc(d, b.notify)
		}
		return steer.Pending, nil
	}

	return steer.Ready, nil
}

// Invoke implements steer.Handler. It forwards the request to the
// upstream server on its own goroutine and completes the returned future
// with the buffered response.
func (b *Backend) Invoke(req *dispatch.Request) *future.Future[*dispatch.Response] {
	b.mutex.Lock()
	b.inflight++
	b.mutex.Unlock()

	fut, complete := future.New[*dispatch.Response]()

	go func() {
		start := time.Now()
		res, err := b.roundTrip(req)
		duration := time.Since(start)

		b.release()

		if err != nil || res.StatusCode >= http.StatusInternalServerError {
			if b.breaker != nil {
				b.breaker.RecordFailure()
			}
		} else {
			if b.breaker != nil {
				b.breaker.RecordSuccess()
			}
			b.RecordResponse(duration)
		}

		b.notify()
		complete(res, err)
	}()

	return fut
}

func (b *Backend) roundTrip(req *dispatch.Request) (*dispatch.Response, error) {
	target := b.url.Scheme + "://" + b.url.Host + req.URI

	out, err := http.NewRequestWithContext(req.Context(), req.Method,
		target, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}

	for k, vals := range req.Header {
		out.Header[k] = vals
	}
	if req.ClientIP != "" {
		out.Header.Set("X-Forwarded-For", req.ClientIP)
	}

	res, err := b.client.Do(out)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	return &dispatch.Response{
		StatusCode: res.StatusCode,
		Header:     res.Header.Clone(),
		Body:       body,
		ServedBy:   b.url.String(),
	}, nil
}

func (b *Backend) release() {
	b.mutex.Lock()
	if b.inflight > 0 {
		b.inflight--
	}
	b.mutex.Unlock()
}

// notify fires the retained waker, if any. The waker is dropped once
// fired; a still-parked poller hands a fresh one back on its next poll.
func (b *Backend) notify() {
	b.mutex.Lock()
	wake := b.wake
	b.wake = nil
	b.mutex.Unlock()

	if wake != nil {
		wake()
	}
}

// URL returns the backend server URL.
func (b *Backend) URL() *url.URL {
	return b.url
}

// Inflight returns the current number of in-flight requests.
func (b *Backend) Inflight() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.inflight
}

// IsHealthy returns true if the backend is currently healthy.
func (b *Backend) IsHealthy() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.healthy
}

// SetHealthy updates the backend's health status and wakes a parked
// poller on a transition back to healthy.
// Returns true if the status changed, false if it was already in that state.
func (b *Backend) SetHealthy(healthy bool) (changed bool) {
	b.mutex.Lock()

	if b.healthy == healthy {
		b.mutex.Unlock()
		return false
	}

	b.healthy = healthy
	b.mutex.Unlock()

	if healthy {
		b.notify()
	}
	return true
}

// RecordResponse updates the exponentially weighted moving average (EWMA)
// response time using the latest request duration.
func (b *Backend) RecordResponse(duration time.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.hasEWMA {
		b.ewmaResponseTime = duration
		b.hasEWMA = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	b.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(b.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the exponentially weighted moving average response time.
// Returns 0 if no responses have been recorded yet.
func (b *Backend) EWMATime() time.Duration {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.hasEWMA {
		return 0
	}

	return b.ewmaResponseTime
}
