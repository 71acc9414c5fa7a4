package main

import (
	"net/http"
)

func setupRouter(a *app) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /dl/{id}", a.handler)
	mux.HandleFunc("GET /status", a.collector.StatusHandler(a.table, a.breakers, version))
	mux.Handle("GET /metrics", a.collector.PrometheusHandler())

	return mux
}
