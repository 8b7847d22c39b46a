package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/steer/internal/backend"
	"github.com/angeloszaimis/steer/internal/circuitbreaker"
	"github.com/angeloszaimis/steer/internal/dispatch"
	"github.com/angeloszaimis/steer/pkg/steer"
)

func mustParseURL(rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u
}

func newRequest(method, uri string) *dispatch.Request {
	return dispatch.NewRequest(context.Background(), method, uri, http.Header{}, nil, "10.0.0.1")
}

var noWake = steer.Waker(func() {})

var _ = Describe("Backend", func() {
	var (
		upstream *httptest.Server
		b        *backend.Backend
	)

	BeforeEach(func() {
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Upstream", "yes")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("hello from " + r.URL.Path))
		}))

		b = backend.New(mustParseURL(upstream.URL), 2, nil, upstream.Client())
	})

	AfterEach(func() {
		upstream.Close()
	})

	Describe("PollReady", func() {
		It("should be ready when healthy with free capacity", func() {
			p, err := b.PollReady(noWake)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(steer.Ready))
		})

		It("should be pending while unhealthy", func() {
			b.SetHealthy(false)

			p, err := b.PollReady(noWake)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(steer.Pending))
		})

		It("should wake a parked poller when health returns", func() {
			b.SetHealthy(false)

			woken := make(chan struct{}, 1)
			p, _ := b.PollReady(func() { woken <- struct{}{} })
			Expect(p).To(Equal(steer.Pending))

			b.SetHealthy(true)
			Eventually(woken).Should(Receive())

			p, _ = b.PollReady(noWake)
			Expect(p).To(Equal(steer.Ready))
		})
	})

	Describe("Invoke", func() {
		It("should complete the future with the upstream response", func() {
			fut := b.Invoke(newRequest(http.MethodGet, "/orders?id=7"))

			res, err := fut.Wait(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			Expect(string(res.Body)).To(Equal("hello from /orders"))
			Expect(res.Header.Get("X-Upstream")).To(Equal("yes"))
			Expect(res.ServedBy).To(Equal(upstream.URL))
		})

		It("should record the response time", func() {
			fut := b.Invoke(newRequest(http.MethodGet, "/"))

			_, err := fut.Wait(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Eventually(b.EWMATime).Should(BeNumerically(">", 0))
		})

		It("should fail the future when the upstream is unreachable", func() {
			dead := backend.New(mustParseURL("http://127.0.0.1:1"), 1, nil, &http.Client{Timeout: time.Second})

			_, err := dead.Invoke(newRequest(http.MethodGet, "/")).Wait(context.Background())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("capacity gating", func() {
		var (
			slow    *httptest.Server
			release chan struct{}
		)

		BeforeEach(func() {
			release = make(chan struct{})
			slow = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-release
				w.WriteHeader(http.StatusOK)
			}))
			b = backend.New(mustParseURL(slow.URL), 1, nil, slow.Client())
		})

		AfterEach(func() {
			close(release)
			slow.Close()
		})

		It("should be pending while all slots are in flight and wake on release", func() {
			fut := b.Invoke(newRequest(http.MethodGet, "/"))
			Eventually(b.Inflight).Should(Equal(1))

			woken := make(chan struct{}, 1)
			p, _ := b.PollReady(func() { woken <- struct{}{} })
			Expect(p).To(Equal(steer.Pending))

			release <- struct{}{}

			Eventually(woken).Should(Receive())
			_, err := fut.Wait(context.Background())
			Expect(err).NotTo(HaveOccurred())

			p, _ = b.PollReady(noWake)
			Expect(p).To(Equal(steer.Ready))
		})
	})

	Describe("circuit breaker gating", func() {
		It("should be pending while the breaker is open and recover after the reset timeout", func() {
			cb := circuitbreaker.NewCircuitBreaker(1, 80*time.Millisecond)
			b = backend.New(mustParseURL(upstream.URL), 1, cb, upstream.Client())

			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

			woken := make(chan struct{}, 1)
			p, _ := b.PollReady(func() { woken <- struct{}{} })
			Expect(p).To(Equal(steer.Pending))

			Eventually(woken, time.Second).Should(Receive())

			p, _ = b.PollReady(noWake)
			Expect(p).To(Equal(steer.Ready))
		})

		It("should trip the breaker on upstream 5xx responses", func() {
			failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer failing.Close()

			cb := circuitbreaker.NewCircuitBreaker(2, time.Minute)
			fb := backend.New(mustParseURL(failing.URL), 2, cb, failing.Client())

			for i := 0; i < 2; i++ {
				res, err := fb.Invoke(newRequest(http.MethodGet, "/")).Wait(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(res.StatusCode).To(Equal(http.StatusInternalServerError))
			}

			Eventually(cb.State).Should(Equal(circuitbreaker.StateOpen))
		})
	})
})
