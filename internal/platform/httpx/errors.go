// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	ledgershared "github.com/tallybooks/tallybooks/internal/ledger/shared"
	"github.com/tallybooks/tallybooks/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Business-rule violations carry their own message so the forms layer
// can render them as actionable feedback.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgershared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledgershared.ErrDuplicateCode):
		Problem(w, http.StatusConflict, "Duplicate GL Code", err.Error())
	case errors.Is(err, ledgershared.ErrOverlappingPeriod):
		Problem(w, http.StatusConflict, "Overlapping Period", err.Error())
	case errors.Is(err, ledgershared.ErrPeriodClosed):
		Problem(w, http.StatusConflict, "Period Closed", err.Error())
	case errors.Is(err, ledgershared.ErrUnbalanced):
		Problem(w, http.StatusUnprocessableEntity, "Unbalanced Entry", err.Error())
	case errors.Is(err, ledgershared.ErrInvalidStatus):
		Problem(w, http.StatusConflict, "Invalid Status", err.Error())
	case errors.Is(err, ledgershared.ErrUnknownParent),
		errors.Is(err, ledgershared.ErrAccountInactive),
		errors.Is(err, ledgershared.ErrOrphanGLCode),
		errors.Is(err, ledgershared.ErrTooFewLines),
		errors.Is(err, ledgershared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrClientScope):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
