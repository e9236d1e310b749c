package receipt

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-tracker/internal/transport"
)

type ScannerAPI interface {
	Scan(ctx context.Context, f File) (Extraction, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     ScannerAPI
	maxFileSize int64
}

func NewHandler(baseHandler *transport.BaseHandler, service ScannerAPI, maxFileSize int64) *Handler {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		maxFileSize: maxFileSize,
	}
}

// ScanReceipt extracts an amount and date from a single uploaded image.
func (h *Handler) ScanReceipt(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.CurrentActor(w, r); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.Logger.Error("ScanReceipt: invalid multipart body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	extraction, err := h.Service.Scan(r.Context(), File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, extraction)
}
