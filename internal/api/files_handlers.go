package api

import (
	"errors"
	"net/http"

	"github.com/tenantry/rentd/internal/files"
)

// saveUpload reads the multipart "file" field and stores it. On failure it
// writes the error response and returns ok=false.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request, kind files.Kind) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeBadRequest(w, "invalid multipart form")
		return "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "file field is required")
		return "", false
	}
	defer func() { _ = file.Close() }()

	name, err := s.files.Save(header.Filename, kind, file)
	if err != nil {
		switch {
		case errors.Is(err, files.ErrUnsupportedType):
			writeBadRequest(w, "unsupported file type")
		case errors.Is(err, files.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		default:
			s.writeStoreError(w, r, err)
		}
		return "", false
	}
	return name, true
}

func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := principal(w, r); !ok {
		return
	}
	kind := files.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = files.KindImage
	}
	if kind != files.KindImage && kind != files.KindDocument {
		writeBadRequest(w, "kind must be image or document")
		return
	}
	name, ok := s.saveUpload(w, r, kind)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"name": name,
		"url":  "/files/" + name,
	})
}
