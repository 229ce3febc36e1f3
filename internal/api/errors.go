package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tenantry/rentd/internal/auth"
	"github.com/tenantry/rentd/internal/log"
	"github.com/tenantry/rentd/internal/store"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

func writeForbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "forbidden")
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

func writeConflict(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusConflict, msg)
}

// writeStoreError maps store sentinels to HTTP status codes; anything else
// is logged and answered as a 500 without leaking internals.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w)
	case errors.Is(err, store.ErrConflict):
		writeConflict(w, "already exists")
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("store operation failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// principal returns the request principal, answering 401 when absent.
func principal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return nil, false
	}
	return p, true
}

// requireStaff answers 403 unless the principal is staff or admin.
func requireStaff(w http.ResponseWriter, p *auth.Principal) bool {
	if !p.IsStaff() {
		writeForbidden(w)
		return false
	}
	return true
}

// requireAdmin answers 403 unless the principal is admin.
func requireAdmin(w http.ResponseWriter, p *auth.Principal) bool {
	if !p.IsAdmin() {
		writeForbidden(w)
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBadRequest(w, "invalid request body")
		return false
	}
	return true
}
