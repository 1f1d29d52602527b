package periods

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
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

type closeRequest struct {
	Start string `json:"period_start" validate:"required,datetime=2006-01-02"`
	End   string `json:"period_end" validate:"required,datetime=2006-01-02"`
	Notes string `json:"notes"`
}

type periodResponse struct {
	Start    string  `json:"period_start"`
	End      string  `json:"period_end"`
	Status   string  `json:"status"`
	ClosedAt *string `json:"closed_at,omitempty"`
	ClosedBy *int64  `json:"closed_by,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

func toResponse(p Period) periodResponse {
	resp := periodResponse{
		Start:  Day(p.StartDate).Format(dateLayout),
		End:    Day(p.EndDate).Format(dateLayout),
		Status: string(p.Status),
		Notes:  p.Notes,
	}
	if p.ClosedAt != nil {
		ts := p.ClosedAt.UTC().Format(time.RFC3339)
		resp.ClosedAt = &ts
	}
	resp.ClosedBy = p.ClosedBy
	return resp
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	list, err := h.service.List(r.Context(), scope)
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]periodResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, _ := time.Parse(dateLayout, req.Start)
	end, _ := time.Parse(dateLayout, req.End)
	scope, _ := shared.ScopeFromContext(r.Context())
	period, err := h.service.Close(r.Context(), scope, CloseInput{StartDate: start, EndDate: end, Notes: req.Notes})
	if err != nil {
		h.logger.Error("close period", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(period))
}

func (h *Handler) Locked(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	locked, err := h.service.IsLocked(r.Context(), scope, date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"locked": locked})
}
