package access

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Rights(ctx context.Context, email string) (Rights, error)
	List(ctx context.Context, actor *internal.Actor) ([]AccessControlUser, error)
	Get(ctx context.Context, actor *internal.Actor, id string) (*AccessControlUser, error)
	Create(ctx context.Context, actor *internal.Actor, dto CreateAccessUserDTO) (*AccessControlUser, error)
	Update(ctx context.Context, actor *internal.Actor, id string, dto UpdateAccessUserDTO) (*AccessControlUser, error)
	SetAccessRights(ctx context.Context, actor *internal.Actor, id string, dto SetAccessRightsDTO) (*AccessControlUser, error)
	SetArea(ctx context.Context, actor *internal.Actor, id string, dto SetAreaDTO) (*AccessControlUser, error)
	Delete(ctx context.Context, actor *internal.Actor, id string) error
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

type AccessUsersResponse struct {
	Users []AccessControlUser `json:"users"`
}

// GetMyRights returns the caller's effective rights.
func (h *Handler) GetMyRights(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	rights, err := h.Service.Rights(r.Context(), actor.Email)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rights)
}

func (h *Handler) ListAccessUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	users, err := h.Service.List(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if users == nil {
		users = []AccessControlUser{}
	}
	h.WriteJSON(w, http.StatusOK, AccessUsersResponse{Users: users})
}

func (h *Handler) GetAccessUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	user, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) CreateAccessUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	var dto CreateAccessUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	user, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) UpdateAccessUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	var dto UpdateAccessUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	user, err := h.Service.Update(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) SetAccessRights(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	var dto SetAccessRightsDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	user, err := h.Service.SetAccessRights(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) SetArea(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	var dto SetAreaDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	user, err := h.Service.SetArea(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) DeleteAccessUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
