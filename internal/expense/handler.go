package expense

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/receipt"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Submit(ctx context.Context, actor *internal.Actor, dto SubmitExpenseDTO, uploads Uploads) (*Expense, error)
	Get(ctx context.Context, actor *internal.Actor, id string) (*Expense, error)
	List(ctx context.Context, actor *internal.Actor, q ListQuery) ([]*Expense, error)
	SetStatus(ctx context.Context, actor *internal.Actor, id string, dto SetStatusDTO) (*Expense, error)
	FinalApprove(ctx context.Context, actor *internal.Actor, id string, dto VersionDTO) (*Expense, error)
	SendBack(ctx context.Context, actor *internal.Actor, id string, dto VersionDTO) (*Expense, error)
	UpdatePayment(ctx context.Context, actor *internal.Actor, id string, dto PaymentDTO) (*Expense, error)
	Close(ctx context.Context, actor *internal.Actor, id string, dto VersionDTO) (*Expense, error)
	SetRemarks(ctx context.Context, actor *internal.Actor, id string, dto RemarksDTO) (*Expense, error)
	Categories() CategoriesResponse
}

type Handler struct {
	*transport.BaseHandler
	Service     ServiceAPI
	maxFileSize int64
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, maxFileSize int64) *Handler {
	if maxFileSize <= 0 {
		maxFileSize = receipt.DefaultMaxFileSize
	}
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		maxFileSize: maxFileSize,
	}
}

// SubmitExpense accepts either a JSON body or a multipart form with the JSON
// in the "expense" field plus optional "document" and "bills" files.
func (h *Handler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	var dto SubmitExpenseDTO
	var uploads Uploads

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, 4*h.maxFileSize)
		if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
			h.Logger.Error("SubmitExpense: invalid multipart body", "error", err)
			h.WriteError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		defer r.MultipartForm.RemoveAll()

		if err := json.Unmarshal([]byte(r.FormValue("expense")), &dto); err != nil {
			h.Logger.Error("SubmitExpense: invalid expense field", "error", err)
			h.WriteError(w, http.StatusBadRequest, "invalid expense field")
			return
		}

		var closers []io.Closer
		defer func() {
			for _, c := range closers {
				c.Close()
			}
		}()

		open := func(header *multipart.FileHeader) (receipt.File, bool) {
			f, err := header.Open()
			if err != nil {
				h.Logger.Error("SubmitExpense: cannot open upload", "error", err, "file", header.Filename)
				h.WriteError(w, http.StatusBadRequest, "invalid file upload")
				return receipt.File{}, false
			}
			closers = append(closers, f)
			return receipt.File{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        f,
			}, true
		}

		if headers := r.MultipartForm.File["document"]; len(headers) > 0 {
			doc, ok := open(headers[0])
			if !ok {
				return
			}
			uploads.Document = &doc
		}
		for _, header := range r.MultipartForm.File["bills"] {
			bill, ok := open(header)
			if !ok {
				return
			}
			uploads.Bills = append(uploads.Bills, bill)
		}
	} else if !h.DecodeJSON(w, r, &dto) {
		return
	}

	e, err := h.Service.Submit(r.Context(), actor, dto, uploads)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	q := ListQuery{
		SubmitterEmail: r.URL.Query().Get("email"),
		Limit:          h.QueryInt(r, "limit", 50, 500),
		Offset:         h.QueryInt(r, "offset", 0, 0),
	}

	expenses, err := h.Service.List(r.Context(), actor, q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if expenses == nil {
		expenses = []*Expense{}
	}
	h.WriteJSON(w, http.StatusOK, ExpensesResponse{Expenses: expenses, Limit: q.Limit, Offset: q.Offset})
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	e, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Service.Categories())
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var dto SetStatusDTO
	h.transition(w, r, &dto, func(ctx context.Context, actor *internal.Actor, id string) (*Expense, error) {
		return h.Service.SetStatus(ctx, actor, id, dto)
	})
}

func (h *Handler) FinalApprove(w http.ResponseWriter, r *http.Request) {
	var dto VersionDTO
	h.transition(w, r, &dto, func(ctx context.Context, actor *internal.Actor, id string) (*Expense, error) {
		return h.Service.FinalApprove(ctx, actor, id, dto)
	})
}

func (h *Handler) SendBack(w http.ResponseWriter, r *http.Request) {
	var dto VersionDTO
	h.transition(w, r, &dto, func(ctx context.Context, actor *internal.Actor, id string) (*Expense, error) {
		return h.Service.SendBack(ctx, actor, id, dto)
	})
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var dto PaymentDTO
	h.transition(w, r, &dto, func(ctx context.Context, actor *internal.Actor, id string) (*Expense, error) {
		return h.Service.UpdatePayment(ctx, actor, id, dto)
	})
}

func (h *Handler) CloseExpense(w http.ResponseWriter, r *http.Request) {
	var dto VersionDTO
	h.transition(w, r, &dto, func(ctx context.Context, actor *internal.Actor, id string) (*Expense, error) {
		return h.Service.Close(ctx, actor, id, dto)
	})
}

func (h *Handler) SetRemarks(w http.ResponseWriter, r *http.Request) {
	var dto RemarksDTO
	h.transition(w, r, &dto, func(ctx context.Context, actor *internal.Actor, id string) (*Expense, error) {
		return h.Service.SetRemarks(ctx, actor, id, dto)
	})
}

// transition decodes an optional body into dto and runs call. An empty body
// is accepted for transitions that carry only the version guard.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, dto interface{}, call func(ctx context.Context, actor *internal.Actor, id string) (*Expense, error)) {
	actor, ok := h.CurrentActor(w, r)
	if !ok {
		return
	}

	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(dto); err != nil && err != io.EOF {
			h.Logger.Error("invalid request body", "error", err, "path", r.URL.Path)
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	e, err := call(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}
