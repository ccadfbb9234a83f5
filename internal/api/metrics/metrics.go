// Package metrics defines the custom Prometheus metrics of the onboarding
// service. HTTP request metrics come from echoprometheus; these count the
// auth outcomes that request metrics cannot tell apart.
//
// Metrics are registered with the default registry on package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "onboarding"

// SignupsTotal counts completed registrations.
// Label:
//   - role: Tenant, Landlord, Maintenance or Cleaner
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of users registered, by role.",
	},
	[]string{"role"},
)

// SigninsTotal counts sign-in attempts.
// Label:
//   - result: "ok", "email_not_found", "incorrect_password" or "error"
var SigninsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signins_total",
		Help:      "Total number of sign-in attempts, by result.",
	},
	[]string{"result"},
)

// SessionVerificationsTotal counts session checks on /auth/token and /me.
// Label:
//   - result: "ok", "invalid" or "error"
var SessionVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_verifications_total",
		Help:      "Total number of session verifications, by result.",
	},
	[]string{"result"},
)

// TokensIssuedTotal counts access tokens handed out.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of access tokens issued.",
	},
)
