package workerapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/respond"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

// RawFileSaver persists an uploaded page.
type RawFileSaver interface {
	Save(ctx context.Context, name string, src io.Reader) (string, error)
}

// RawFilesHandler serves POST /internal/raw-files, a multipart form with a
// "file" part.
type RawFilesHandler struct{ Store RawFileSaver }

func (h RawFilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "failed to parse multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "missing file")
		return
	}
	defer func() { _ = file.Close() }()

	path, err := h.Store.Save(r.Context(), header.Filename, file)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, respond.CodeInternal, err)
		return
	}

	slog.InfoContext(r.Context(), "raw file stored",
		slog.String("worker_id", auth.FromContext(r.Context()).WorkerID),
		slog.String("path", path),
		slog.Int64("size", header.Size))
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok", "path": path})
}
