package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex             sync.RWMutex
	totalRequests     int64
	readinessFailures int64
	deadlinesElapsed  int64
	invocations       map[string]int64
	responseTimes     map[string][]time.Duration
	statusCodes       map[string]map[int]int64
	healthStatus      map[string]bool
	startTime         time.Time
}

type Snapshot struct {
	TotalRequests     int64                     `json:"total_requests"`
	ReadinessFailures int64                     `json:"readiness_failures"`
	DeadlinesElapsed  int64                     `json:"deadlines_elapsed"`
	Uptime            time.Duration             `json:"uptime"`
	Backends          map[string]BackendMetrics `json:"backends"`
	Policy            string                    `json:"policy"`
}

type BackendMetrics struct {
	Invocations int64         `json:"invocations"`
	Healthy     bool          `json:"healthy"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		invocations:   make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		healthStatus:  make(map[string]bool),
		startTime:     time.Now(),
	}
}

func (m *Metrics) IncrementRequests() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.totalRequests++
}

func (m *Metrics) IncrementReadinessFailures() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.readinessFailures++
}

func (m *Metrics) IncrementDeadlines() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.deadlinesElapsed++
}

func (m *Metrics) RecordInvoke(backend string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.invocations[backend]++

	m.responseTimes[backend] = append(m.responseTimes[backend], duration)
	if len(m.responseTimes[backend]) > 1000 {
		m.responseTimes[backend] = m.responseTimes[backend][1:]
	}

	if m.statusCodes[backend] == nil {
		m.statusCodes[backend] = make(map[int]int64)
	}
	m.statusCodes[backend][statusCode]++
}

func (m *Metrics) UpdateHealthStatus(backend string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[backend] = healthy
}

func (m *Metrics) Snapshot(policy string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalRequests:     m.totalRequests,
		ReadinessFailures: m.readinessFailures,
		DeadlinesElapsed:  m.deadlinesElapsed,
		Uptime:            time.Since(m.startTime),
		Backends:          make(map[string]BackendMetrics),
		Policy:            policy,
	}

	allBackends := make(map[string]bool)
	for backend := range m.invocations {
		allBackends[backend] = true
	}
	for backend := range m.responseTimes {
		allBackends[backend] = true
	}
	for backend := range m.healthStatus {
		allBackends[backend] = true
	}

	for backend := range allBackends {
		bm := BackendMetrics{
			Invocations: m.invocations[backend],
			Healthy:     m.healthStatus[backend],
			StatusCodes: m.statusCodes[backend],
		}

		durations := m.responseTimes[backend]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			bm.AvgResponse = average(sorted)
			bm.P50Response = percentile(sorted, 0.50)
			bm.P95Response = percentile(sorted, 0.95)
			bm.P99Response = percentile(sorted, 0.99)
		}

		snap.Backends[backend] = bm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
