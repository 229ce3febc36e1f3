// Package metrics defines the Prometheus instruments for rentd's business
// operations. HTTP-level metrics live in the middleware package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsConfirmed counts settled payments by method.
	PaymentsConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentd_payments_confirmed_total",
		Help: "Payments confirmed as settled, by method",
	}, []string{"method"})

	// PaymentAmountCents totals settled payment volume by currency.
	PaymentAmountCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentd_payment_amount_cents_total",
		Help: "Settled payment volume in cents, by currency",
	}, []string{"currency"})

	// InvoicesCreated counts rent invoices generated by the billing job.
	InvoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentd_invoices_created_total",
		Help: "Rent invoices created by the billing job",
	})

	// InvoicesOverdue counts invoices marked overdue by the billing job.
	InvoicesOverdue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentd_invoices_overdue_total",
		Help: "Invoices marked overdue by the billing job",
	})

	// BillingRuns counts billing job executions by outcome.
	BillingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentd_billing_runs_total",
		Help: "Billing job executions, by outcome",
	}, []string{"outcome"})

	// MaintenanceRequests counts maintenance requests by urgency.
	MaintenanceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentd_maintenance_requests_total",
		Help: "Maintenance requests submitted, by urgency",
	}, []string{"urgency"})

	// MaintenanceOpen tracks maintenance requests not yet resolved or closed.
	MaintenanceOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rentd_maintenance_open",
		Help: "Maintenance requests currently open",
	})

	// UnitsByStatus tracks unit counts per occupancy status.
	UnitsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rentd_units",
		Help: "Units by occupancy status",
	}, []string{"status"})

	// NotificationsSent counts notifications delivered, by type.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentd_notifications_sent_total",
		Help: "Notifications delivered, by type",
	}, []string{"type"})
)
