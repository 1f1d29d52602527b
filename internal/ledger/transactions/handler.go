package transactions

import (
	"log/slog"
	"net/http"
	"strconv"
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

type writeRequest struct {
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Description string          `json:"description"`
	Category    string          `json:"category" validate:"required"`
	Account     string          `json:"account" validate:"required"`
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Type        string          `json:"type" validate:"required,oneof=income expense"`
	Status      string          `json:"status" validate:"omitempty,oneof=PENDING CLEARED"`
}

type transactionResponse struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	Account     string          `json:"account"`
	Reference   string          `json:"reference,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
}

func toResponse(t Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID.String(),
		Date:        t.Date.Format(dateLayout),
		Description: t.Description,
		Category:    t.CategoryCode,
		Account:     t.AccountCode,
		Reference:   t.Reference,
		Amount:      t.Amount,
		Type:        string(t.Type),
		Status:      string(t.Status),
	}
}

func (h *Handler) decode(r *http.Request) (Input, error) {
	var req writeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return Input{}, err
	}
	if err := h.validator.Struct(req); err != nil {
		return Input{}, err
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return Input{}, err
	}
	return Input{
		Date:         date,
		Description:  req.Description,
		CategoryCode: req.Category,
		AccountCode:  req.Account,
		Reference:    req.Reference,
		Amount:       req.Amount,
		Type:         TransactionType(req.Type),
		Status:       TransactionStatus(req.Status),
	}, nil
}

type listResponse struct {
	Data       []transactionResponse `json:"data"`
	Pagination shared.Pagination     `json:"pagination"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	list, pg, err := h.service.List(r.Context(), scope, page, perPage)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toResponse(t))
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: out, Pagination: pg})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	txn, err := h.service.Create(r.Context(), scope, in)
	if err != nil {
		h.logger.Error("create transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(txn))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	txn, err := h.service.Get(r.Context(), scope, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(txn))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	in, err := h.decode(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	txn, err := h.service.Update(r.Context(), scope, id, in)
	if err != nil {
		h.logger.Error("update transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(txn))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	if err := h.service.Delete(r.Context(), scope, id); err != nil {
		h.logger.Error("delete transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
