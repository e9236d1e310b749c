package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/report"
	"github.com/frahmantamala/expense-tracker/internal/transport"
)

type ServiceAPI interface {
	WriteCSV(ctx context.Context, actor *internal.Actor, f report.Filter, w io.Writer) (int, error)
	ExportSheets(ctx context.Context, actor *internal.Actor, f report.Filter) (int, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

type SheetsExportResponse struct {
	Rows int `json:"rows"`
}

// ExportCSV buffers the file so a failure can still be reported as JSON.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	f, err := report.ParseFilter(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if _, err := h.Service.WriteCSV(r.Context(), actor, f, &buf); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("expenses-%s.csv", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("failed to write csv export", "error", err)
	}
}

func (h *Handler) ExportSheets(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	f, err := report.ParseFilter(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	rows, err := h.Service.ExportSheets(r.Context(), actor, f)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, SheetsExportResponse{Rows: rows})
}
