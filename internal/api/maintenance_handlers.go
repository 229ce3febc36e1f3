package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tenantry/rentd/internal/files"
	"github.com/tenantry/rentd/internal/metrics"
	"github.com/tenantry/rentd/internal/notify"
	"github.com/tenantry/rentd/internal/store"
)

type createMaintenanceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Urgency     string `json:"urgency"`
}

func (s *Server) handleCreateMaintenance(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if p.Role != store.RoleTenant {
		writeForbidden(w)
		return
	}
	var req createMaintenanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeBadRequest(w, "title is required")
		return
	}
	urgency := store.Urgency(req.Urgency)
	if urgency == "" {
		urgency = store.UrgencyMedium
	}
	if !urgency.Valid() {
		writeBadRequest(w, "unknown urgency")
		return
	}

	lease, err := s.store.LeaseByTenant(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeBadRequest(w, "no active lease")
			return
		}
		s.writeStoreError(w, r, err)
		return
	}

	now := time.Now()
	request := &store.MaintenanceRequest{
		ID:          uuid.NewString(),
		TenantID:    p.UserID,
		UnitID:      lease.UnitID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Urgency:     urgency,
		Status:      store.MaintenanceSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateMaintenanceRequest(r.Context(), request); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	metrics.MaintenanceRequests.WithLabelValues(string(urgency)).Inc()
	metrics.MaintenanceOpen.Inc()
	writeJSON(w, http.StatusCreated, request)
}

func (s *Server) handleListMaintenance(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	status := store.MaintenanceStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeBadRequest(w, "unknown status")
		return
	}
	filter := store.MaintenanceFilter{Status: status}
	if !p.IsStaff() {
		filter.TenantID = p.UserID
	}
	list, err := s.store.ListMaintenanceRequests(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// loadMaintenanceForRead fetches the request and enforces owner-or-staff
// access.
func (s *Server) loadMaintenanceForRead(w http.ResponseWriter, r *http.Request) (*store.MaintenanceRequest, bool) {
	p, ok := principal(w, r)
	if !ok {
		return nil, false
	}
	request, err := s.store.MaintenanceRequestByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return nil, false
	}
	if request.TenantID != p.UserID && !p.IsStaff() {
		writeForbidden(w)
		return nil, false
	}
	return request, true
}

func (s *Server) handleGetMaintenance(w http.ResponseWriter, r *http.Request) {
	request, ok := s.loadMaintenanceForRead(w, r)
	if !ok {
		return
	}
	updates, err := s.store.ListMaintenanceUpdates(r.Context(), request.ID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request": request,
		"updates": updates,
	})
}

type updateMaintenanceRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Urgency     *string `json:"urgency"`
}

func (s *Server) handleUpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	request, ok := s.loadMaintenanceForRead(w, r)
	if !ok {
		return
	}
	if request.Status.Terminal() {
		writeConflict(w, "request already closed")
		return
	}
	var req updateMaintenanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			writeBadRequest(w, "title must not be empty")
			return
		}
		request.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		request.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		request.Category = strings.TrimSpace(*req.Category)
	}
	if req.Urgency != nil {
		urgency := store.Urgency(*req.Urgency)
		if !urgency.Valid() {
			writeBadRequest(w, "unknown urgency")
			return
		}
		request.Urgency = urgency
	}
	if err := s.store.UpdateMaintenanceRequest(r.Context(), request); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (s *Server) handleDeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	request, err := s.store.MaintenanceRequestByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if err := s.store.DeleteMaintenanceRequest(r.Context(), request.ID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !request.Status.Terminal() {
		metrics.MaintenanceOpen.Dec()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type assignRequest struct {
	StaffID string `json:"staff_id"`
}

func (s *Server) handleAssignMaintenance(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	var req assignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	staff, err := s.store.UserByID(r.Context(), req.StaffID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if staff.Role != store.RoleStaff && staff.Role != store.RoleAdmin {
		writeBadRequest(w, "assignee must be staff")
		return
	}

	request, err := s.store.MaintenanceRequestByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if request.Status.Terminal() {
		writeConflict(w, "request already closed")
		return
	}

	request.AssignedTo = staff.ID
	request.Status = store.MaintenanceInProgress
	if err := s.store.UpdateMaintenanceRequest(r.Context(), request); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	update := &store.MaintenanceUpdate{
		ID:        uuid.NewString(),
		RequestID: request.ID,
		Message:   fmt.Sprintf("Assigned to %s", staff.Name),
		PostedBy:  p.UserID,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendMaintenanceUpdate(r.Context(), update); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	if err := s.notifier.Notify(r.Context(), staff.ID, notify.TypeMaintenanceAssigned,
		"Maintenance request assigned", request.Title,
		"/maintenance/requests/"+request.ID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	metrics.NotificationsSent.WithLabelValues(notify.TypeMaintenanceAssigned).Inc()

	writeJSON(w, http.StatusOK, request)
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (s *Server) handleMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireStaff(w, p) {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status := store.MaintenanceStatus(req.Status)
	if !status.Valid() {
		writeBadRequest(w, "unknown status")
		return
	}

	request, err := s.store.MaintenanceRequestByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if request.Status.Terminal() {
		writeConflict(w, "request already closed")
		return
	}

	request.Status = status
	if err := s.store.UpdateMaintenanceRequest(r.Context(), request); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	message := "Status changed to " + string(status)
	if strings.TrimSpace(req.Note) != "" {
		message += ": " + strings.TrimSpace(req.Note)
	}
	update := &store.MaintenanceUpdate{
		ID:        uuid.NewString(),
		RequestID: request.ID,
		Message:   message,
		PostedBy:  p.UserID,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendMaintenanceUpdate(r.Context(), update); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	if status.Terminal() {
		metrics.MaintenanceOpen.Dec()
		if err := s.notifier.Notify(r.Context(), request.TenantID, notify.TypeMaintenanceStatus,
			"Maintenance request "+string(status), request.Title,
			"/maintenance/requests/"+request.ID); err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		metrics.NotificationsSent.WithLabelValues(notify.TypeMaintenanceStatus).Inc()
	}

	writeJSON(w, http.StatusOK, request)
}

func (s *Server) handleMaintenancePhoto(w http.ResponseWriter, r *http.Request) {
	request, ok := s.loadMaintenanceForRead(w, r)
	if !ok {
		return
	}
	name, ok := s.saveUpload(w, r, files.KindImage)
	if !ok {
		return
	}
	request.PhotoURLs = append(request.PhotoURLs, "/files/"+name)
	if err := s.store.UpdateMaintenanceRequest(r.Context(), request); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}
