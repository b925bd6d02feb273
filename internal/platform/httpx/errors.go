package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layers. Services wrap these with
// context; RespondError maps them back onto HTTP statuses.
var (
	// ErrNotFound indicates a referenced entity is missing.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates schema or field level input failure.
	ErrValidation = errors.New("validation failed")
	// ErrStorage wraps an underlying read/write failure.
	ErrStorage = errors.New("storage failure")
	// ErrPartialFailure indicates a multi-step write that was rolled back
	// by a compensating action. The source records were not mutated.
	ErrPartialFailure = errors.New("operation rolled back after partial failure")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
)

// RespondError maps domain errors to RFC7807 responses. Storage and
// partial-failure details carry the raw backend message so the UI can
// show it in the error banner.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrPartialFailure):
		Problem(w, http.StatusInternalServerError, "Conversion Rolled Back", err.Error())
	case errors.Is(err, ErrStorage):
		Problem(w, http.StatusInternalServerError, "Storage Error", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
