package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vidtrack/internal/fileutil"
	"vidtrack/internal/logging"
	"vidtrack/internal/textutil"
)

const (
	uploadField     = "file"
	multipartMemory = 32 << 20
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context(), s.logger)
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d MB", s.maxUpload>>20))
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			s.writeError(w, http.StatusBadRequest, "No file part")
		default:
			s.writeError(w, http.StatusBadRequest, "invalid multipart body")
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		// A part sent with an empty filename is parsed as a plain form value.
		if _, ok := r.MultipartForm.Value[uploadField]; ok {
			s.writeError(w, http.StatusBadRequest, "No selected file")
			return
		}
		s.writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()
	if strings.TrimSpace(header.Filename) == "" {
		s.writeError(w, http.StatusBadRequest, "No selected file")
		return
	}

	id := uuid.NewString()
	jobDir := filepath.Join(s.uploadDir, id)
	name := textutil.UploadFileName(header.Filename, "upload")
	written, err := fileutil.WriteStream(filepath.Join(jobDir, name), file, 0o644)
	if err != nil {
		_ = os.RemoveAll(jobDir)
		logger.Error("failed to store upload",
			logging.Error(err),
			logging.String(logging.FieldEventType, "upload_store_failed"),
			logging.String(logging.FieldErrorHint, "check upload_dir permissions and free space"),
		)
		s.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	job, err := s.store.CreateWithID(r.Context(), id, written.Path)
	if err != nil {
		_ = os.RemoveAll(jobDir)
		logger.Error("failed to create job",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_create_failed"),
			logging.String(logging.FieldErrorHint, "check job store access"),
		)
		s.writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	s.metrics.JobSubmitted(written.Bytes)
	logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source_file", name),
		logging.Int64("bytes", written.Bytes),
		logging.String("sha256", written.SHA256),
		logging.String(logging.FieldEventType, "job_submitted"),
	)
	if s.hooks.OnSubmit != nil {
		s.hooks.OnSubmit()
	}
	s.writeJSON(w, http.StatusAccepted, SubmitResponse{JobID: job.ID})
}
