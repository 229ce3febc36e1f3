package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tenantry/rentd/internal/auth"
	"github.com/tenantry/rentd/internal/store"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	user, err := s.store.UserByID(r.Context(), p.UserID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type profileUpdateRequest struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	EmergencyContact string `json:"emergency_contact"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req profileUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.store.UserByID(r.Context(), p.UserID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	user.Phone = strings.TrimSpace(req.Phone)
	user.EmergencyContact = strings.TrimSpace(req.EmergencyContact)
	// A completed profile has a name and a phone number on file.
	user.ProfileComplete = user.Name != "" && user.Phone != ""

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	role := store.Role(r.URL.Query().Get("role"))
	if role != "" && !role.Valid() {
		writeBadRequest(w, "unknown role")
		return
	}
	users, err := s.store.ListUsers(r.Context(), store.UserFilter{Role: role})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// handleCreateUser lets an admin create staff (or further admin) accounts;
// tenants self-register through /auth/register.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role := store.Role(req.Role)
	if !role.Valid() {
		writeBadRequest(w, "unknown role")
		return
	}
	if len(req.Password) < 8 {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	now := time.Now()
	user := &store.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	// Users may read themselves; staff and admin may read anyone.
	if id != p.UserID && !p.IsStaff() {
		writeForbidden(w)
		return
	}
	user, err := s.store.UserByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type userUpdateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// handleUpdateUser lets users edit their own record and admins edit anyone.
// Role changes stay admin-only either way.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if id != p.UserID && p.Role != store.RoleAdmin {
		writeForbidden(w)
		return
	}
	var req userUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.store.UserByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		user.Phone = phone
	}
	if req.Role != "" && store.Role(req.Role) != user.Role {
		if p.Role != store.RoleAdmin {
			writeForbidden(w)
			return
		}
		role := store.Role(req.Role)
		if !role.Valid() {
			writeBadRequest(w, "unknown role")
			return
		}
		user.Role = role
	}
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireAdmin(w, p) {
		return
	}
	id := chi.URLParam(r, "id")
	if id == p.UserID {
		writeBadRequest(w, "cannot delete own account")
		return
	}
	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if _, err := s.sessions.RevokeUser(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
