package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agrogest/internal/handlers"
	applog "agrogest/internal/log"
	"agrogest/internal/refdata"
	"agrogest/internal/views/pages"
)

func newRouter(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	applog.Debug(context.Background(), "route registered", "path", "/healthz")
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	applog.Debug(context.Background(), "route registered", "path", "/metrics")
	mux.HandleFunc("GET /api/parcels", handlers.Parcels)
	mux.HandleFunc("GET /api/machines", handlers.Machines)
	mux.HandleFunc("GET /api/products/{type}", handlers.Products)
	applog.Debug(context.Background(), "route registered", "path", "/api/", "reference", true)
	mux.HandleFunc(pages.FormPath, handlers.TreatmentForm)
	mux.HandleFunc(pages.EventsPath, handlers.TreatmentFormEvent)
	mux.HandleFunc(pages.SubmitPath, handlers.TreatmentFormSubmit)
	applog.Debug(context.Background(), "route registered", "path", pages.FormPath, "form", true)
	mux.HandleFunc("/", handlers.Home)
	applog.Debug(context.Background(), "route registered", "path", "/")
	return mux
}

// newRegistry collects the process metrics and the reference data fetch metrics.
func newRegistry() (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	cs := append([]prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}, refdata.Collectors()...)
	for _, c := range cs {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
