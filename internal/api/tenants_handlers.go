package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tenantry/rentd/internal/files"
	"github.com/tenantry/rentd/internal/store"
)

// tenantView joins a tenant account with its lease and unit.
type tenantView struct {
	User  *store.User  `json:"user"`
	Lease *store.Lease `json:"lease,omitempty"`
	Unit  *store.Unit  `json:"unit,omitempty"`
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireStaff(w, p) {
		return
	}
	propertyID := r.URL.Query().Get("property_id")
	unitID := r.URL.Query().Get("unit_id")

	tenants, err := s.store.ListUsers(r.Context(), store.UserFilter{Role: store.RoleTenant})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	out := make([]tenantView, 0, len(tenants))
	for i := range tenants {
		view := tenantView{User: &tenants[i]}
		lease, err := s.store.LeaseByTenant(r.Context(), tenants[i].ID)
		if err == nil {
			view.Lease = lease
			if unit, err := s.store.UnitByID(r.Context(), lease.UnitID); err == nil {
				view.Unit = unit
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			s.writeStoreError(w, r, err)
			return
		}
		if unitID != "" && (view.Lease == nil || view.Lease.UnitID != unitID) {
			continue
		}
		if propertyID != "" && (view.Unit == nil || view.Unit.PropertyID != propertyID) {
			continue
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, out)
}

type setLeaseRequest struct {
	UnitID    string `json:"unit_id"`
	RentCents int64  `json:"rent_cents"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date,omitempty"`
}

func (s *Server) handleSetLease(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	var req setLeaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tenantID := chi.URLParam(r, "id")
	tenant, err := s.store.UserByID(r.Context(), tenantID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if tenant.Role != store.RoleTenant {
		writeBadRequest(w, "user is not a tenant")
		return
	}

	unit, err := s.store.UnitByID(r.Context(), req.UnitID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeBadRequest(w, "start_date must be YYYY-MM-DD")
		return
	}
	var end time.Time
	if req.EndDate != "" {
		end, err = time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			writeBadRequest(w, "end_date must be YYYY-MM-DD")
			return
		}
	}

	rent := req.RentCents
	if rent <= 0 {
		rent = unit.RentCents
	}

	now := time.Now()
	lease := &store.Lease{
		TenantID:  tenantID,
		UnitID:    unit.ID,
		RentCents: rent,
		StartDate: start,
		EndDate:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// BindLease flips unit occupancy together with the lease write, so a
	// partial failure cannot leave a unit marked occupied without a lease.
	if err := s.store.BindLease(r.Context(), lease); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lease)
}

func (s *Server) handleEndLease(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	tenantID := chi.URLParam(r, "id")

	if err := s.store.ReleaseLease(r.Context(), tenantID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "lease ended"})
}

func (s *Server) handleUploadLeaseDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	tenantID := chi.URLParam(r, "id")
	lease, err := s.store.LeaseByTenant(r.Context(), tenantID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	name, ok := s.saveUpload(w, r, files.KindDocument)
	if !ok {
		return
	}
	lease.DocumentURL = "/files/" + name
	lease.UpdatedAt = time.Now()
	if err := s.store.UpsertLease(r.Context(), lease); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lease)
}
