// AngelaMos | 2026
// metrics.go

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDropped = "dropped"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuthRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of registration attempts.",
		},
		[]string{"result"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"result"},
	)

	AuthVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_email_verifications_total",
			Help: "Total number of email verification attempts.",
		},
		[]string{"result"},
	)

	MailMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_messages_total",
			Help: "Outbound mail by delivery result.",
		},
		[]string{"result"},
	)

	MailQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mail_queue_depth",
			Help: "Messages waiting in the outbound mail queue.",
		},
	)
)

// MustRegister registers every collector on reg with a constant service
// label, plus the Go runtime and process collectors.
func MustRegister(reg prometheus.Registerer, serviceName string) {
	wrapped := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": serviceName},
		reg,
	)

	wrapped.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthRegistrationsTotal,
		AuthLoginsTotal,
		AuthVerificationsTotal,
		MailMessagesTotal,
		MailQueueDepth,
	)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
