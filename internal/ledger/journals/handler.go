package journals

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybooks/tallybooks/internal/platform/httpx"
	"github.com/tallybooks/tallybooks/internal/shared"
)

const dateLayout = "2006-01-02"

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type lineRequest struct {
	GLCode      string          `json:"gl_code" validate:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

type draftRequest struct {
	Date        string        `json:"date" validate:"required,datetime=2006-01-02"`
	Reference   string        `json:"reference"`
	Description string        `json:"description"`
	Lines       []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type reverseRequest struct {
	Memo string `json:"memo"`
}

type lineResponse struct {
	GLCode      string          `json:"gl_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

type entryResponse struct {
	ID          string         `json:"id"`
	Date        string         `json:"date"`
	Reference   string         `json:"reference,omitempty"`
	Description string         `json:"description,omitempty"`
	Status      string         `json:"status"`
	ReversalOf  *string        `json:"reversal_of,omitempty"`
	Lines       []lineResponse `json:"lines,omitempty"`
}

func toResponse(e JournalEntry) entryResponse {
	resp := entryResponse{
		ID:          e.ID.String(),
		Date:        e.Date.Format(dateLayout),
		Reference:   e.Reference,
		Description: e.Description,
		Status:      string(e.Status),
	}
	if e.ReversalOf != nil {
		ref := e.ReversalOf.String()
		resp.ReversalOf = &ref
	}
	for _, line := range e.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			GLCode:      line.GLCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return resp
}

func (h *Handler) decodeDraft(r *http.Request) (DraftInput, error) {
	var req draftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return DraftInput{}, err
	}
	if err := h.validator.Struct(req); err != nil {
		return DraftInput{}, err
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return DraftInput{}, err
	}
	in := DraftInput{Date: date, Reference: req.Reference, Description: req.Description}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, LineInput{
			GLCode:      line.GLCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return in, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	entries, err := h.service.List(r.Context(), scope)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResponse(e))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	entry, err := h.service.Get(r.Context(), scope, entryID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(entry))
}

func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeDraft(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	entry, err := h.service.CreateDraft(r.Context(), scope, in)
	if err != nil {
		h.logger.Error("create draft", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(entry))
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	in, err := h.decodeDraft(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	entry, err := h.service.UpdateDraft(r.Context(), scope, entryID, in)
	if err != nil {
		h.logger.Error("update draft", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(entry))
}

func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	if err := h.service.DeleteDraft(r.Context(), scope, entryID); err != nil {
		h.logger.Error("delete draft", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	entry, err := h.service.Post(r.Context(), scope, entryID)
	if err != nil {
		h.logger.Error("post journal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(entry))
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	var req reverseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
			return
		}
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	reversal, err := h.service.Reverse(r.Context(), scope, entryID, req.Memo)
	if err != nil {
		h.logger.Error("reverse journal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(reversal))
}
