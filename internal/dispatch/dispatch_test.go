package dispatch_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/steer/internal/dispatch"
	"github.com/angeloszaimis/steer/pkg/future"
	"github.com/angeloszaimis/steer/pkg/picker"
	"github.com/angeloszaimis/steer/pkg/steer"
)

// stubBackend answers every request with a canned response, or never, or
// fails its readiness probe, depending on how the test configures it.
type stubBackend struct {
	mutex       sync.Mutex
	name        string
	pollErr     error
	never       bool // futures that never complete
	invocations int
}

func (s *stubBackend) PollReady(steer.Waker) (steer.Poll, error) {
	if s.pollErr != nil {
		return steer.Pending, s.pollErr
	}
	return steer.Ready, nil
}

func (s *stubBackend) Invoke(req *dispatch.Request) *future.Future[*dispatch.Response] {
	s.mutex.Lock()
	s.invocations++
	s.mutex.Unlock()

	if s.never {
		f, _ := future.New[*dispatch.Response]()
		return f
	}

	return future.Resolved(&dispatch.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"X-Stub": []string{s.name}},
		Body:       []byte("served by " + s.name),
		ServedBy:   "http://" + s.name,
	})
}

func (s *stubBackend) invokeCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.invocations
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Suppress logs in tests
	}))
}

func newDispatcher(ctx context.Context, p steer.Picker[*dispatch.Request, *dispatch.Response], stubs ...*stubBackend) *dispatch.Dispatcher {
	handlers := make([]steer.Handler[*dispatch.Request, *dispatch.Response], len(stubs))
	for i, s := range stubs {
		handlers[i] = s
	}

	steerer, err := steer.New(handlers, p)
	Expect(err).NotTo(HaveOccurred())

	d := dispatch.NewDispatcher(testLogger(), steerer, nil)
	go d.Run(ctx)
	return d
}

var _ = Describe("Dispatcher", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	It("should route a request and hand back the backend's future", func() {
		a := &stubBackend{name: "a"}
		d := newDispatcher(ctx, picker.RoundRobin[*dispatch.Request, *dispatch.Response](), a)

		req := dispatch.NewRequest(ctx, http.MethodGet, "/", http.Header{}, nil, "10.0.0.1")
		fut, err := d.Dispatch(req)
		Expect(err).NotTo(HaveOccurred())

		res, err := fut.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StatusCode).To(Equal(http.StatusOK))
		Expect(res.ServedBy).To(Equal("http://a"))
	})

	It("should alternate backends under round robin", func() {
		a, b := &stubBackend{name: "a"}, &stubBackend{name: "b"}
		d := newDispatcher(ctx, picker.RoundRobin[*dispatch.Request, *dispatch.Response](), a, b)

		for i := 0; i < 4; i++ {
			req := dispatch.NewRequest(ctx, http.MethodGet, "/", http.Header{}, nil, "10.0.0.1")
			fut, err := d.Dispatch(req)
			Expect(err).NotTo(HaveOccurred())
			_, err = fut.Wait(ctx)
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(a.invokeCount()).To(Equal(2))
		Expect(b.invokeCount()).To(Equal(2))
	})

	It("should keep affine requests on one backend under ip-hash", func() {
		a, b := &stubBackend{name: "a"}, &stubBackend{name: "b"}
		hash := picker.Hash[*dispatch.Request, *dispatch.Response](func(req *dispatch.Request) string {
			return req.ClientIP
		})
		d := newDispatcher(ctx, hash, a, b)

		var servedBy string
		for i := 0; i < 5; i++ {
			req := dispatch.NewRequest(ctx, http.MethodGet, "/", http.Header{}, nil, "192.168.1.50")
			fut, err := d.Dispatch(req)
			Expect(err).NotTo(HaveOccurred())
			res, err := fut.Wait(ctx)
			Expect(err).NotTo(HaveOccurred())

			if servedBy == "" {
				servedBy = res.ServedBy
			}
			Expect(res.ServedBy).To(Equal(servedBy))
		}
	})

	It("should fail the request when a readiness probe fails", func() {
		probeErr := errors.New("probe failed")
		a := &stubBackend{name: "a", pollErr: probeErr}
		d := newDispatcher(ctx, picker.RoundRobin[*dispatch.Request, *dispatch.Response](), a)

		req := dispatch.NewRequest(ctx, http.MethodGet, "/", http.Header{}, nil, "10.0.0.1")
		_, err := d.Dispatch(req)
		Expect(err).To(MatchError(probeErr))
	})

	It("should give up when the request context expires before dispatch", func() {
		a := &stubBackend{name: "a"}
		d := newDispatcher(ctx, picker.RoundRobin[*dispatch.Request, *dispatch.Response](), a)

		reqCtx, reqCancel := context.WithCancel(ctx)
		reqCancel()

		req := dispatch.NewRequest(reqCtx, http.MethodGet, "/", http.Header{}, nil, "10.0.0.1")
		_, err := d.Dispatch(req)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("FrontDoor", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	serve := func(fd *dispatch.FrontDoor, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, strings.NewReader("payload"))
		req.RemoteAddr = "10.1.2.3:4567"
		rec := httptest.NewRecorder()
		fd.ServeHTTP(rec, req)
		return rec
	}

	It("should write the backend response through", func() {
		a := &stubBackend{name: "a"}
		d := newDispatcher(ctx, picker.RoundRobin[*dispatch.Request, *dispatch.Response](), a)
		fd := dispatch.NewFrontDoor(testLogger(), d, time.Second, nil)

		rec := serve(fd, "/orders")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("served by a"))
		Expect(rec.Header().Get("X-Stub")).To(Equal("a"))
		Expect(rec.Header().Get("X-Backend-Server")).To(Equal("http://a"))
	})

	It("should answer 504 when the invoke deadline elapses", func() {
		a := &stubBackend{name: "a", never: true}
		d := newDispatcher(ctx, picker.RoundRobin[*dispatch.Request, *dispatch.Response](), a)
		fd := dispatch.NewFrontDoor(testLogger(), d, 50*time.Millisecond, nil)

		rec := serve(fd, "/slow")
		Expect(rec.Code).To(Equal(http.StatusGatewayTimeout))
	})

	It("should answer 503 when readiness fails", func() {
		a := &stubBackend{name: "a", pollErr: errors.New("probe failed")}
		d := newDispatcher(ctx, picker.RoundRobin[*dispatch.Request, *dispatch.Response](), a)
		fd := dispatch.NewFrontDoor(testLogger(), d, time.Second, nil)

		rec := serve(fd, "/")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})
})
