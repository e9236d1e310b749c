package project

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, actor *internal.Actor) ([]*Project, error)
	Get(ctx context.Context, actor *internal.Actor, id string) (*Project, error)
	Create(ctx context.Context, actor *internal.Actor, dto ProjectDTO) (*Project, error)
	Update(ctx context.Context, actor *internal.Actor, id string, dto ProjectDTO) (*Project, error)
	Delete(ctx context.Context, actor *internal.Actor, id string) error
	ListExpenses(ctx context.Context, actor *internal.Actor, projectID string) ([]*ProjectExpense, error)
	CreateExpense(ctx context.Context, actor *internal.Actor, projectID string, dto CreateProjectExpenseDTO) (*ProjectExpense, error)
	SetExpenseStatus(ctx context.Context, actor *internal.Actor, projectID, id string, dto SetExpenseStatusDTO) (*ProjectExpense, error)
	DeleteExpense(ctx context.Context, actor *internal.Actor, projectID, id string) error
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

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	projects, err := h.Service.List(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if projects == nil {
		projects = []*Project{}
	}
	h.WriteJSON(w, http.StatusOK, ProjectsResponse{Projects: projects})
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	p, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	var dto ProjectDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	p, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	var dto ProjectDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	p, err := h.Service.Update(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
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

func (h *Handler) ListProjectExpenses(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	expenses, err := h.Service.ListExpenses(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if expenses == nil {
		expenses = []*ProjectExpense{}
	}
	h.WriteJSON(w, http.StatusOK, ProjectExpensesResponse{Expenses: expenses})
}

func (h *Handler) CreateProjectExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	var dto CreateProjectExpenseDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	e, err := h.Service.CreateExpense(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) SetProjectExpenseStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	var dto SetExpenseStatusDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	e, err := h.Service.SetExpenseStatus(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "expenseID"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteProjectExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteExpense(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "expenseID")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
