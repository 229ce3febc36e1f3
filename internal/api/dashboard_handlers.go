package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tenantry/rentd/internal/metrics"
	"github.com/tenantry/rentd/internal/store"
)

const adminDashboardTTL = 30 * time.Second

func (s *Server) handleTenantDashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if p.Role != store.RoleTenant {
		writeForbidden(w)
		return
	}
	ctx := r.Context()

	user, err := s.store.UserByID(ctx, p.UserID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	out := map[string]any{"profile": user}

	lease, err := s.store.LeaseByTenant(ctx, p.UserID)
	switch {
	case err == nil:
		out["lease"] = lease
		if unit, err := s.store.UnitByID(ctx, lease.UnitID); err == nil {
			out["unit"] = unit
		}
	case !errors.Is(err, store.ErrNotFound):
		s.writeStoreError(w, r, err)
		return
	}

	requests, err := s.store.ListMaintenanceRequests(ctx, store.MaintenanceFilter{TenantID: p.UserID})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	out["maintenance_requests"] = clip(requests, 5)

	payments, err := s.store.ListPayments(ctx, store.PaymentFilter{TenantID: p.UserID})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	out["recent_payments"] = clip(payments, 5)

	// Upcoming rent is the oldest unsettled invoice.
	var upcoming *store.Payment
	for i := len(payments) - 1; i >= 0; i-- {
		if payments[i].Status == store.PaymentPending || payments[i].Status == store.PaymentOverdue {
			upcoming = &payments[i]
			break
		}
	}
	out["upcoming_rent"] = upcoming

	unread, err := s.store.UnreadNotificationCount(ctx, p.UserID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	out["unread_notifications"] = unread

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStaffDashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireStaff(w, p) {
		return
	}
	ctx := r.Context()

	assigned, err := s.store.ListMaintenanceRequests(ctx, store.MaintenanceFilter{AssignedTo: p.UserID})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	var open, resolved []store.MaintenanceRequest
	recentResolved := 0
	weekAgo := time.Now().AddDate(0, 0, -7)
	for _, req := range assigned {
		if req.Status.Terminal() {
			resolved = append(resolved, req)
			if req.UpdatedAt.After(weekAgo) {
				recentResolved++
			}
		} else {
			open = append(open, req)
		}
	}

	completion := 0.0
	if len(assigned) > 0 {
		completion = float64(len(resolved)) / float64(len(assigned))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"open_tasks":       open,
		"resolved_tasks":   clip(resolved, 10),
		"resolved_last_7d": recentResolved,
		"total_assigned":   len(assigned),
		"completion_rate":  completion,
	})
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	ctx := r.Context()

	const cacheKey = "dashboard:admin"
	if cached, ok := s.cache.Get(ctx, cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "hit")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	period := time.Now().Format("2006-01")

	// The four aggregates are independent, fetch them concurrently.
	var (
		units          []store.Unit
		periodPayments []store.Payment
		requests       []store.MaintenanceRequest
		leases         []store.Lease
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		units, err = s.store.ListUnits(gctx, store.UnitFilter{})
		return err
	})
	g.Go(func() (err error) {
		periodPayments, err = s.store.ListPayments(gctx, store.PaymentFilter{Period: period})
		return err
	})
	g.Go(func() (err error) {
		requests, err = s.store.ListMaintenanceRequests(gctx, store.MaintenanceFilter{})
		return err
	})
	g.Go(func() (err error) {
		leases, err = s.store.ListLeases(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	unitsByStatus := map[store.UnitStatus]int{}
	for _, u := range units {
		unitsByStatus[u.Status]++
	}
	occupancy := 0.0
	if len(units) > 0 {
		occupancy = float64(unitsByStatus[store.UnitOccupied]) / float64(len(units))
	}
	for status, count := range unitsByStatus {
		metrics.UnitsByStatus.WithLabelValues(string(status)).Set(float64(count))
	}

	var collectedCents, outstandingCents int64
	for _, pay := range periodPayments {
		if pay.Status == store.PaymentPaid {
			collectedCents += pay.AmountCents
		} else {
			outstandingCents += pay.AmountCents
		}
	}

	maintenanceByStatus := map[store.MaintenanceStatus]int{}
	for _, req := range requests {
		maintenanceByStatus[req.Status]++
	}

	payload := map[string]any{
		"occupancy": map[string]any{
			"total_units": len(units),
			"by_status":   unitsByStatus,
			"rate":        occupancy,
		},
		"rent": map[string]any{
			"period":            period,
			"collected_cents":   collectedCents,
			"outstanding_cents": outstandingCents,
		},
		"maintenance": map[string]any{
			"by_status": maintenanceByStatus,
			"recent":    clip(requests, 10),
		},
		"active_leases": len(leases),
		"generated_at":  time.Now(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.cache.Set(ctx, cacheKey, body, adminDashboardTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "miss")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// clip returns at most n leading elements, never nil.
func clip[T any](list []T, n int) []T {
	if list == nil {
		return []T{}
	}
	if len(list) > n {
		return list[:n]
	}
	return list
}
