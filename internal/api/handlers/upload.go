package handlers

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/reckless-spender/internal/api/middleware"
	"github.com/dvloznov/reckless-spender/internal/archive"
	"github.com/dvloznov/reckless-spender/internal/jobs"
	"github.com/dvloznov/reckless-spender/internal/logger"
	"github.com/dvloznov/reckless-spender/internal/pipeline"
)

// maxUploadBytes bounds the size of an uploaded statement.
const maxUploadBytes = 20 << 20

const processFailure = "An error occurred while processing the file"

// UploadHandler handles statement uploads.
type UploadHandler struct {
	importer  jobs.Importer
	archive   archive.Archive
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewUploadHandler creates an upload handler. archive and publisher may be
// nil: uploads are then not archived and async imports are refused.
func NewUploadHandler(importer jobs.Importer, arch archive.Archive, publisher jobs.Publisher, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		importer:  importer,
		archive:   arch,
		publisher: publisher,
		log:       log,
	}
}

// UploadOFX handles POST /upload/ofx
func (h *UploadHandler) UploadOFX(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "A multipart file field named 'file' is required.")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".ofx") {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid file type. Only .ofx files are accepted.")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async && h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Asynchronous imports are not enabled")
		return
	}

	archiveURI := h.archiveUpload(ctx, header.Filename, content)

	if async {
		h.enqueue(w, r, header.Filename, archiveURI, content)
		return
	}

	res, err := h.importer.Import(ctx, header.Filename, content)
	if err != nil {
		if msg, ok := pipeline.ParseFailure(err); ok {
			middleware.WriteError(w, http.StatusInternalServerError, processFailure+": "+msg)
			return
		}
		log.Error().Err(err).Str("filename", header.Filename).Msg("Import failed")
		middleware.WriteError(w, http.StatusInternalServerError, processFailure)
		return
	}

	summary := res.Summary()
	summary.ArchiveURI = archiveURI
	middleware.WriteJSON(w, http.StatusCreated, summary)
}

// archiveUpload stores a copy of the upload. Failures are logged only.
func (h *UploadHandler) archiveUpload(ctx context.Context, filename string, content []byte) string {
	if h.archive == nil {
		return ""
	}
	uri, err := h.archive.Store(ctx, filename, content)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("filename", filename).Msg("Failed to archive statement")
		return ""
	}
	return uri
}

func (h *UploadHandler) enqueue(w http.ResponseWriter, r *http.Request, filename, archiveURI string, content []byte) {
	job := &jobs.ImportStatementJob{
		Filename: filename,
		GCSURI:   archiveURI,
		Content:  content,
	}
	if err := h.publisher.PublishImport(r.Context(), job); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("filename", filename).Msg("Failed to enqueue import")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import")
		return
	}

	// The worker owns job from here on; only its id is read.
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":   job.JobID,
		"status":   string(jobs.JobStatusPending),
		"filename": filename,
	})
}
