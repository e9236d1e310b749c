package report

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
)

type ServiceAPI interface {
	Stats(ctx context.Context, actor *internal.Actor, f Filter) (Stats, error)
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

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	stats, err := h.Service.Stats(r.Context(), actor, f)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}
