// Package metrics defines and registers the custom Prometheus metrics of the
// user registry. It is the single source of truth for metric names, labels,
// and help strings.
//
// All metrics are registered with the default registry at package init via
// promauto; HTTP request metrics come from echoprometheus in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/usuarios/registry/internal/core/domain"
)

const namespace = "registry"

// ── Registry metrics ──────────────────────────────────────────────────────────

// UsersMutatedTotal counts committed mutations.
// Labels:
//   - action: "created", "updated" or "deleted"
//   - type: the record's user type code, empty for deletions
var UsersMutatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_mutated_total",
		Help:      "Total number of committed user mutations, by action and user type.",
	},
	[]string{"action", "type"},
)

// ValidationFailuresTotal counts missing fields on rejected candidates.
// Labels:
//   - op: "create" or "update"
//   - field: the missing field (e.g. "email")
var ValidationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_failures_total",
		Help:      "Total number of missing fields reported on rejected candidates.",
	},
	[]string{"op", "field"},
)

// IdempotentReplaysTotal counts creates answered from an earlier Idempotency-Key.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of create requests answered by an idempotent replay.",
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditWritesTotal counts audit trail writes.
// Labels:
//   - action: the audited mutation
//   - result: "ok" or "error"
var AuditWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_writes_total",
		Help:      "Total number of audit trail writes, by action and result.",
	},
	[]string{"action", "result"},
)

// AuditQueueDepth tracks the events waiting in each dispatcher worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// FormSessionsOpen tracks the open form sessions.
var FormSessionsOpen = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "form_sessions_open",
		Help:      "Current number of open form sessions.",
	},
)

// Recorder adapts the package metrics to the interfaces of the service layer,
// the audit dispatcher and the form session manager.
type Recorder struct{}

func (Recorder) UserMutated(action domain.AuditAction, userType domain.UserType) {
	UsersMutatedTotal.WithLabelValues(string(action), userType.Code()).Inc()
}

func (Recorder) ValidationFailed(op string, errs domain.ValidationError) {
	for field := range errs {
		ValidationFailuresTotal.WithLabelValues(op, field).Inc()
	}
}

func (Recorder) IdempotentReplay() {
	IdempotentReplaysTotal.Inc()
}

func (Recorder) QueueDepth(workerID string, depth int) {
	AuditQueueDepth.WithLabelValues(workerID).Set(float64(depth))
}

func (Recorder) AuditWritten(action domain.AuditAction) {
	AuditWritesTotal.WithLabelValues(string(action), "ok").Inc()
}

func (Recorder) AuditFailed(action domain.AuditAction) {
	AuditWritesTotal.WithLabelValues(string(action), "error").Inc()
}

func (Recorder) SessionsOpen(n int) {
	FormSessionsOpen.Set(float64(n))
}
