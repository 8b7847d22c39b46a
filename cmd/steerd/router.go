package main

import (
	"net/http"

	"github.com/angeloszaimis/steer/internal/dispatch"
	"github.com/angeloszaimis/steer/internal/metrics"
)

func setupRouter(frontDoor *dispatch.FrontDoor, metricsCollector *metrics.Collector, policy string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", frontDoor.ServeHTTP)
	mux.HandleFunc("/metrics", metricsCollector.Handler(policy))

	return mux
}
