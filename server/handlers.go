package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/compose"
	"github.com/RyanBlaney/genesis-map/genesis"
	"github.com/RyanBlaney/genesis-map/logging"
)

// multipartMemory is how much of an upload is held in memory before the
// multipart reader spills to disk
const multipartMemory = 8 << 20

// writeJSON encodes v with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(err, "Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, format string, args ...any) {
	s.writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// handleHealth reports liveness and the number of known jobs
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": genesis.Version,
		"jobs":    s.jobs.Len(),
	})
}

// handleAnalyze accepts a multipart upload in the "file" field and queues it.
// Query parameters: extract_stems (bool), max_effects (int).
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithContext(r.Context()).WithFields(logging.Fields{
		"function": "handleAnalyze",
	})

	opts, err := s.jobOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "file too large (max %d MB)", s.config.MaxUploadBytes>>20)
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: %v", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !s.config.AllowsExtension(filename) {
		s.writeError(w, http.StatusBadRequest, "invalid file format %q", filepath.Ext(filename))
		return
	}
	if header.Size > s.config.MaxUploadBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, "file too large (max %d MB)", s.config.MaxUploadBytes>>20)
		return
	}

	path, err := s.saveUpload(file, filepath.Ext(filename))
	if err != nil {
		logger.Error(err, "Failed to save upload")
		s.writeError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}

	job := s.jobs.Submit(path, filename, opts)
	logger.Info("Job queued", logging.Fields{
		"job_id":   job.ID,
		"filename": filename,
		"bytes":    header.Size,
		"stems":    opts.Stems,
	})
	s.writeJSON(w, http.StatusAccepted, job)
}

// jobOptions applies the query parameters to the server defaults
func (s *Server) jobOptions(r *http.Request) (genesis.Options, error) {
	opts := s.options
	q := r.URL.Query()
	if v := q.Get("extract_stems"); v != "" {
		stems, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid extract_stems %q", v)
		}
		opts.Stems = stems
	}
	if v := q.Get("max_effects"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid max_effects %q", v)
		}
		opts.MaxEffects = n
	}
	return opts, nil
}

// saveUpload copies the upload into the upload directory
func (s *Server) saveUpload(src io.Reader, ext string) (string, error) {
	dir := s.config.UploadDir
	if dir == "" {
		dir = os.TempDir()
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst, err := os.CreateTemp(dir, "upload-*"+strings.ToLower(ext))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// completedResult looks up a finished job's map and writes the error
// response when there is none yet
func (s *Server) completedResult(w http.ResponseWriter, id string) (*genesis.GenesisMap, bool) {
	job, m, err := s.jobs.Result(id)
	switch {
	case errors.Is(err, apperrors.ErrJobNotFound):
		s.writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	case job.Status == StatusFailed:
		s.writeError(w, http.StatusInternalServerError, "analysis failed: %s", job.Error)
		return nil, false
	case job.Status != StatusCompleted || m == nil:
		s.writeError(w, http.StatusTooEarly, "job still %s", job.Status)
		return nil, false
	}
	return m, true
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	m, ok := s.completedResult(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// handleEffects serves the full effect list as {id}.bin (packed records) or
// {id}.json (firmware document)
func (s *Server) handleEffects(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	id, format, ok := strings.Cut(file, ".")
	if !ok || (format != "bin" && format != "json") {
		s.writeError(w, http.StatusNotFound, "unknown effects format %q", file)
		return
	}
	m, ok := s.completedResult(w, id)
	if !ok {
		return
	}

	var err error
	if format == "bin" {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".bin"))
		err = compose.WriteBinary(w, m.Composed)
	} else {
		w.Header().Set("Content-Type", "application/json")
		err = compose.WriteJSON(w, m.Composed, s.firmware)
	}
	if err != nil {
		s.logger.WithContext(r.Context()).Error(err, "Failed to write effects", logging.Fields{"job_id": id})
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Job deleted"})
}
