package handlers

import (
	"net/http"
	"strconv"

	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *SettlementHandler, httpMetrics *metrics.HTTPMetrics, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(instrument(httpMetrics))
	apiV1.HandleFunc("/users/{username}/proposals", h.ListPendingProposals).Methods("GET")
	apiV1.HandleFunc("/proposals/{id}/accept", h.AcceptProposal).Methods("POST")
	apiV1.HandleFunc("/proposals/{id}/decline", h.DeclineProposal).Methods("POST")
	apiV1.HandleFunc("/trades", h.ListTradesBetween).Methods("GET")
	apiV1.HandleFunc("/trades/{id}", h.GetTrade).Methods("GET")
	apiV1.HandleFunc("/trades/{id}/presence", h.ConfirmPresence).Methods("POST")
	apiV1.HandleFunc("/trades/{id}/verification", h.VerifySessionCode).Methods("POST")
	apiV1.HandleFunc("/trades/{id}/inspection", h.RecordInspection).Methods("POST")
	apiV1.HandleFunc("/trades/{id}/completion", h.CompleteTrade).Methods("POST")
	apiV1.HandleFunc("/users/{username}/trades", h.ListUserTrades).Methods("GET")
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument counts requests and observes latency per route template.
func instrument(m *metrics.HTTPMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			endpoint := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					endpoint = tmpl
				}
			}

			timer := prometheus.NewTimer(m.RequestDuration.WithLabelValues(r.Method, endpoint))
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			timer.ObserveDuration()
			m.RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		})
	}
}
