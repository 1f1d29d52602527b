package ratios

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallybooks/tallybooks/internal/platform/httpx"
	"github.com/tallybooks/tallybooks/internal/shared"
)

const dateLayout = "2006-01-02"

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	report, err := h.service.Report(r.Context(), scope, asOf)
	if err != nil {
		h.logger.Error("ratio report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	base, err := time.Parse(dateLayout, r.URL.Query().Get("base"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "base must be YYYY-MM-DD")
		return
	}
	compare, err := time.Parse(dateLayout, r.URL.Query().Get("compare"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "compare must be YYYY-MM-DD")
		return
	}
	var thresholdAmount, thresholdPercent *decimal.Decimal
	if raw := r.URL.Query().Get("threshold_amount"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "threshold_amount must be numeric")
			return
		}
		thresholdAmount = &v
	}
	if raw := r.URL.Query().Get("threshold_percent"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "threshold_percent must be numeric")
			return
		}
		thresholdPercent = &v
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	result, err := h.service.Compare(r.Context(), scope, base, compare, thresholdAmount, thresholdPercent)
	if err != nil {
		h.logger.Error("ratio comparison", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
