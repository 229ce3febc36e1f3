// Package jobs hosts rentd's background work, currently the rent billing
// cycle: invoice generation per active lease and overdue escalation.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tenantry/rentd/internal/log"
	"github.com/tenantry/rentd/internal/metrics"
	"github.com/tenantry/rentd/internal/notify"
	"github.com/tenantry/rentd/internal/store"
)

// BillingConfig tunes the billing cycle.
type BillingConfig struct {
	Interval   time.Duration
	RentDueDay int    // day of month invoices come due, 1..28
	GraceDays  int    // days past the due date before an invoice is overdue
	Currency   string // stamped on every generated invoice
}

// Billing generates one rent invoice per active lease per calendar month and
// escalates unpaid invoices past their grace period. Runs are idempotent: the
// store rejects a second invoice for the same (tenant, period).
type Billing struct {
	store    store.Store
	notifier *notify.Notifier
	cfg      BillingConfig

	now func() time.Time

	mu      sync.Mutex
	lastRun time.Time
	lastErr string
}

// NewBilling creates the billing job. The notifier may not be nil.
func NewBilling(s store.Store, n *notify.Notifier, cfg BillingConfig) *Billing {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.RentDueDay < 1 || cfg.RentDueDay > 28 {
		cfg.RentDueDay = 1
	}
	if cfg.Currency == "" {
		cfg.Currency = "KES"
	}
	return &Billing{store: s, notifier: n, cfg: cfg, now: time.Now}
}

// LastRun reports when the job last completed and the error message of that
// run, empty on success. The zero time means it has not run yet.
func (b *Billing) LastRun() (time.Time, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRun, b.lastErr
}

// Run executes the billing cycle immediately and then on every interval tick
// until ctx is cancelled.
func (b *Billing) Run(ctx context.Context) error {
	logger := log.WithComponent("billing")

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	logger.Info().
		Dur("interval", b.cfg.Interval).
		Int("due_day", b.cfg.RentDueDay).
		Int("grace_days", b.cfg.GraceDays).
		Msg("billing job started")

	if err := b.RunOnce(ctx); err != nil {
		logger.Error().Err(err).Msg("billing run failed")
	}

	for {
		select {
		case <-ticker.C:
			if err := b.RunOnce(ctx); err != nil {
				logger.Error().Err(err).Msg("billing run failed")
			}
		case <-ctx.Done():
			logger.Info().Msg("billing job stopped")
			return ctx.Err()
		}
	}
}

// RunOnce executes a single billing cycle: issue invoices for the current
// period, then escalate pending invoices past their grace period.
func (b *Billing) RunOnce(ctx context.Context) error {
	now := b.now()

	issueErr := b.issueInvoices(ctx, now)
	overdueErr := b.markOverdue(ctx, now)

	err := issueErr
	if err == nil {
		err = overdueErr
	}

	b.mu.Lock()
	b.lastRun = now
	if err != nil {
		b.lastErr = err.Error()
	} else {
		b.lastErr = ""
	}
	b.mu.Unlock()

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.BillingRuns.WithLabelValues(outcome).Inc()
	return err
}

func (b *Billing) issueInvoices(ctx context.Context, now time.Time) error {
	logger := log.WithComponent("billing")

	leases, err := b.store.ListLeases(ctx)
	if err != nil {
		return fmt.Errorf("list leases: %w", err)
	}

	period := now.Format("2006-01")
	dueDate := time.Date(now.Year(), now.Month(), b.cfg.RentDueDay, 0, 0, 0, 0, now.Location())

	created := 0
	for i := range leases {
		lease := &leases[i]
		if !lease.EndDate.IsZero() && lease.EndDate.Before(now) {
			continue
		}

		invoice := &store.Payment{
			ID:          uuid.NewString(),
			TenantID:    lease.TenantID,
			AmountCents: lease.RentCents,
			Currency:    b.cfg.Currency,
			Status:      store.PaymentPending,
			Period:      period,
			DueDate:     dueDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := b.store.CreatePayment(ctx, invoice); err != nil {
			if errors.Is(err, store.ErrConflict) {
				// Already billed for this period.
				continue
			}
			return fmt.Errorf("create invoice for tenant %s: %w", lease.TenantID, err)
		}
		metrics.InvoicesCreated.Inc()
		created++

		if err := b.notifier.Notify(ctx, lease.TenantID, notify.TypeRentDue,
			"Rent due for "+period,
			fmt.Sprintf("Your rent of %s is due on %s.",
				formatAmount(invoice.Currency, invoice.AmountCents),
				dueDate.Format("2 January 2006")),
			"/payments/"+invoice.ID); err != nil {
			logger.Warn().Err(err).Str("tenant_id", lease.TenantID).Msg("rent due notification failed")
		} else {
			metrics.NotificationsSent.WithLabelValues(notify.TypeRentDue).Inc()
		}
	}

	if created > 0 {
		logger.Info().Int("created", created).Str("period", period).Msg("rent invoices issued")
	}
	return nil
}

func (b *Billing) markOverdue(ctx context.Context, now time.Time) error {
	logger := log.WithComponent("billing")

	pending, err := b.store.ListPayments(ctx, store.PaymentFilter{Status: store.PaymentPending})
	if err != nil {
		return fmt.Errorf("list pending payments: %w", err)
	}

	escalated := 0
	for i := range pending {
		p := &pending[i]
		if p.DueDate.IsZero() {
			continue
		}
		if !now.After(p.DueDate.AddDate(0, 0, b.cfg.GraceDays)) {
			continue
		}

		p.Status = store.PaymentOverdue
		p.UpdatedAt = now
		if err := b.store.UpdatePayment(ctx, p); err != nil {
			return fmt.Errorf("mark payment %s overdue: %w", p.ID, err)
		}
		metrics.InvoicesOverdue.Inc()
		escalated++

		if err := b.notifier.Notify(ctx, p.TenantID, notify.TypeRentOverdue,
			"Rent overdue",
			fmt.Sprintf("Your rent of %s for %s was due on %s and is now overdue.",
				formatAmount(p.Currency, p.AmountCents), p.Period,
				p.DueDate.Format("2 January 2006")),
			"/payments/"+p.ID); err != nil {
			logger.Warn().Err(err).Str("tenant_id", p.TenantID).Msg("overdue notification failed")
		} else {
			metrics.NotificationsSent.WithLabelValues(notify.TypeRentOverdue).Inc()
		}
	}

	if escalated > 0 {
		logger.Info().Int("overdue", escalated).Msg("invoices escalated to overdue")
	}
	return nil
}

func formatAmount(currency string, cents int64) string {
	return fmt.Sprintf("%s %d.%02d", currency, cents/100, cents%100)
}
