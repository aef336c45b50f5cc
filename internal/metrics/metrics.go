// Package metrics exposes prometheus collectors for the auth and
// session lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Total number of successful account registrations",
		},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"result"},
	)

	SessionsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_issued_total",
			Help: "Total number of sessions issued",
		},
	)

	SessionsRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_revoked_total",
			Help: "Total number of sessions revoked by logout or account deletion",
		},
	)

	SessionsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_purged_total",
			Help: "Total number of expired sessions deleted during cleanup",
		},
	)

	AccountsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_deleted_total",
			Help: "Total number of accounts deleted by their owner",
		},
	)
)

// LoginResult values for the logins_total counter.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)
