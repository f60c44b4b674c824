// Package metrics — счётчики Prometheus для сброса пароля и HTTP.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartacademy"

var (
	ResetRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "password_reset",
		Name:      "requests_total",
		Help:      "Password reset requests by outcome.",
	}, []string{"result"})

	ResetValidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "password_reset",
		Name:      "validations_total",
		Help:      "Reset token validations by outcome.",
	}, []string{"result"})

	ResetCommits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "password_reset",
		Name:      "commits_total",
		Help:      "Password reset commits by outcome.",
	}, []string{"result"})

	TokensPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "password_reset",
		Name:      "tokens_purged_total",
		Help:      "Expired or used reset tokens deleted by the cleanup sweep.",
	})

	EmailJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "email",
		Name:      "jobs_total",
		Help:      "Outgoing email jobs by outcome.",
	}, []string{"result"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		ResetRequests, ResetValidations, ResetCommits, TokensPurged, EmailJobs, HTTPDuration,
	}
}

// Register регистрирует все коллекторы; повторная регистрация не ошибка.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unknown"
	}
	HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
