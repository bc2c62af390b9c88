package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", app.handleHealth)
	mux.HandleFunc("/ws", app.authenticate(app.handleWebSocket))
	mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))

	return mux
}
