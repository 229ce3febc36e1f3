package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tenantry/rentd/internal/metrics"
	"github.com/tenantry/rentd/internal/notify"
	"github.com/tenantry/rentd/internal/payments"
	"github.com/tenantry/rentd/internal/store"
)

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	status := store.PaymentStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeBadRequest(w, "unknown status")
		return
	}
	filter := store.PaymentFilter{
		Status: status,
		Period: r.URL.Query().Get("period"),
	}
	if p.IsStaff() {
		filter.TenantID = r.URL.Query().Get("tenant_id")
	} else {
		filter.TenantID = p.UserID
	}
	list, err := s.store.ListPayments(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type intentRequest struct {
	PaymentID string `json:"payment_id"`
	Method    string `json:"method"`
}

func (s *Server) handlePaymentIntent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req intentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := s.store.PaymentByID(r.Context(), req.PaymentID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if payment.TenantID != p.UserID && !p.IsStaff() {
		writeForbidden(w)
		return
	}
	if payment.Status == store.PaymentPaid {
		writeConflict(w, "payment already settled")
		return
	}

	provider, err := s.providers.Get(req.Method)
	if err != nil {
		writeBadRequest(w, "unknown payment method")
		return
	}

	intent, err := provider.CreateIntent(r.Context(), payment.AmountCents, payment.Currency, payment.ID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	payment.Method = provider.Name()
	payment.ProviderRef = intent.Ref
	if err := s.store.UpdatePayment(r.Context(), payment); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"payment": payment,
		"intent":  intent,
	})
}

type confirmRequest struct {
	PaymentID string `json:"payment_id"`
}

func (s *Server) handlePaymentConfirm(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := s.store.PaymentByID(r.Context(), req.PaymentID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if payment.TenantID != p.UserID && !p.IsStaff() {
		writeForbidden(w)
		return
	}
	// Confirming twice is a no-op, not an error.
	if payment.Status == store.PaymentPaid {
		writeJSON(w, http.StatusOK, payment)
		return
	}
	if payment.ProviderRef == "" || payment.Method == "" {
		writeBadRequest(w, "no payment intent created")
		return
	}

	provider, err := s.providers.Get(payment.Method)
	if err != nil {
		writeBadRequest(w, "unknown payment method")
		return
	}
	if err := provider.Confirm(r.Context(), payment.ProviderRef); err != nil {
		if errors.Is(err, payments.ErrNotSettled) {
			writeError(w, http.StatusPaymentRequired, "payment not settled")
			return
		}
		s.writeStoreError(w, r, err)
		return
	}

	payment.Status = store.PaymentPaid
	payment.PaidAt = time.Now()
	if err := s.store.UpdatePayment(r.Context(), payment); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	metrics.PaymentsConfirmed.WithLabelValues(payment.Method).Inc()
	metrics.PaymentAmountCents.WithLabelValues(payment.Currency).Add(float64(payment.AmountCents))

	message := fmt.Sprintf("Payment of %s received", formatAmount(payment.AmountCents, payment.Currency))
	if payment.Period != "" {
		message = fmt.Sprintf("Rent for %s paid: %s", payment.Period, formatAmount(payment.AmountCents, payment.Currency))
	}
	if err := s.notifier.Notify(r.Context(), payment.TenantID, notify.TypePaymentReceived,
		"Payment received", message, "/payments/"+payment.ID+"/receipt"); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	metrics.NotificationsSent.WithLabelValues(notify.TypePaymentReceived).Inc()

	writeJSON(w, http.StatusOK, payment)
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, cents/100, cents%100)
}

func (s *Server) handlePaymentReceipt(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	payment, err := s.store.PaymentByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if payment.TenantID != p.UserID && !p.IsStaff() {
		writeForbidden(w)
		return
	}
	if payment.Status != store.PaymentPaid {
		writeBadRequest(w, "payment not settled")
		return
	}

	tenant, err := s.store.UserByID(r.Context(), payment.TenantID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"receipt_no":   "RCPT-" + payment.ID,
		"tenant":       map[string]string{"id": tenant.ID, "name": tenant.Name, "email": tenant.Email},
		"amount":       formatAmount(payment.AmountCents, payment.Currency),
		"method":       payment.Method,
		"period":       payment.Period,
		"paid_at":      payment.PaidAt,
		"provider_ref": payment.ProviderRef,
	})
}

// rentDueEntry is one row in the admin rent-due report.
type rentDueEntry struct {
	Tenant      *store.User    `json:"tenant"`
	Payment     *store.Payment `json:"payment"`
	DaysOverdue int            `json:"days_overdue"`
}

func (s *Server) handleRentDueReport(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}

	var entries []rentDueEntry
	for _, status := range []store.PaymentStatus{store.PaymentPending, store.PaymentOverdue} {
		list, err := s.store.ListPayments(r.Context(), store.PaymentFilter{Status: status})
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		for i := range list {
			tenant, err := s.store.UserByID(r.Context(), list[i].TenantID)
			if err != nil {
				continue
			}
			overdue := 0
			if !list[i].DueDate.IsZero() && time.Now().After(list[i].DueDate) {
				overdue = int(time.Since(list[i].DueDate).Hours() / 24)
			}
			entries = append(entries, rentDueEntry{
				Tenant:      tenant,
				Payment:     &list[i],
				DaysOverdue: overdue,
			})
		}
	}

	var totalDueCents int64
	for _, e := range entries {
		totalDueCents += e.Payment.AmountCents
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":         entries,
		"total_due_cents": totalDueCents,
		"generated_at":    time.Now(),
	})
}
