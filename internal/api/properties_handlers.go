package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tenantry/rentd/internal/store"
)

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	if _, ok := principal(w, r); !ok {
		return
	}
	props, err := s.store.ListProperties(r.Context(), store.PropertyFilter{
		City:   r.URL.Query().Get("city"),
		Search: r.URL.Query().Get("q"),
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}

type createPropertyRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Description string `json:"description"`
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	var req createPropertyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Address) == "" {
		writeBadRequest(w, "name and address are required")
		return
	}

	now := time.Now()
	prop := &store.Property{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProperty(r.Context(), prop); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, prop)
}

type updatePropertyRequest struct {
	Name        *string `json:"name"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	Description *string `json:"description"`
}

func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	var req updatePropertyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	prop, err := s.store.PropertyByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeBadRequest(w, "name must not be empty")
			return
		}
		prop.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		if strings.TrimSpace(*req.Address) == "" {
			writeBadRequest(w, "address must not be empty")
			return
		}
		prop.Address = strings.TrimSpace(*req.Address)
	}
	if req.City != nil {
		prop.City = strings.TrimSpace(*req.City)
	}
	if req.Description != nil {
		prop.Description = strings.TrimSpace(*req.Description)
	}
	if err := s.store.UpdateProperty(r.Context(), prop); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	if err := s.store.DeleteProperty(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeConflict(w, "property has units under active lease")
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	if _, ok := principal(w, r); !ok {
		return
	}
	prop, err := s.store.PropertyByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	units, err := s.store.ListUnits(r.Context(), store.UnitFilter{PropertyID: prop.ID})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"property": prop,
		"units":    units,
	})
}

type createUnitRequest struct {
	UnitNumber string `json:"unit_number"`
	Bedrooms   int    `json:"bedrooms"`
	Bathrooms  int    `json:"bathrooms"`
	RentCents  int64  `json:"rent_cents"`
}

func (s *Server) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	var req createUnitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UnitNumber) == "" {
		writeBadRequest(w, "unit_number is required")
		return
	}
	if req.RentCents <= 0 {
		writeBadRequest(w, "rent_cents must be positive")
		return
	}

	propertyID := chi.URLParam(r, "id")
	if _, err := s.store.PropertyByID(r.Context(), propertyID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	now := time.Now()
	unitNumber := strings.TrimSpace(req.UnitNumber)
	unit := &store.Unit{
		ID:         propertyID + "_" + unitNumber,
		PropertyID: propertyID,
		UnitNumber: unitNumber,
		Bedrooms:   req.Bedrooms,
		Bathrooms:  req.Bathrooms,
		RentCents:  req.RentCents,
		Status:     store.UnitVacant,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateUnit(r.Context(), unit); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	if _, ok := principal(w, r); !ok {
		return
	}
	status := store.UnitStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeBadRequest(w, "unknown unit status")
		return
	}
	units, err := s.store.ListUnits(r.Context(), store.UnitFilter{
		PropertyID: r.URL.Query().Get("property_id"),
		Status:     status,
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}
