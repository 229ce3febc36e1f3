package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tenantry/rentd/internal/metrics"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	list, err := s.store.ListNotifications(r.Context(), p.UserID, limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	unread, err := s.store.UnreadNotificationCount(r.Context(), p.UserID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": list,
		"unread_count":  unread,
	})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := s.store.MarkNotificationRead(r.Context(), p.UserID, chi.URLParam(r, "id")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

type sendNotificationRequest struct {
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok || !requireStaff(w, p) {
		return
	}
	var req sendNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" || req.UserID == "" {
		writeBadRequest(w, "user_id and title are required")
		return
	}
	typ := req.Type
	if typ == "" {
		typ = "announcement"
	}
	if _, err := s.store.UserByID(r.Context(), req.UserID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if err := s.notifier.Notify(r.Context(), req.UserID, typ, req.Title, req.Message, ""); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	metrics.NotificationsSent.WithLabelValues(typ).Inc()
	writeJSON(w, http.StatusCreated, map[string]string{"status": "sent"})
}
