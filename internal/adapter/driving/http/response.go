package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/orchestrix/tracksync/pkg/apperror"
	"github.com/orchestrix/tracksync/pkg/httputil"
)

// structValidator is shared across handlers: struct-tag validation for
// request DTOs, on top of the hand-rolled pkg/validation checks used in
// the service layer for business-rule validation that doesn't fit a tag
// (cross-field, enum lookups against the DB).
var structValidator = validator.New(validator.WithRequiredStructEnabled())

// decodeAndValidate decodes the JSON body into dst and runs struct-tag
// validation. On failure it writes the HTTP response itself and returns
// false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := structValidator.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, formatValidationError(err))
		return false
	}
	return true
}

func formatValidationError(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "validation failed"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// PaginatedResponse represents a paginated response
type PaginatedResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int32       `json:"page"`
	Limit int32       `json:"limit"`
}

// DataResponse represents a single data response
type DataResponse struct {
	Data interface{} `json:"data"`
}

// parsePagination reads ?page=&limit= with sane defaults and caps.
func parsePagination(r *http.Request) (page, limit int) {
	page, limit = 1, 20
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	return page, limit
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.JSON(w, status, data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	httputil.Error(w, status, message)
}

// respondAppError maps a service-layer error onto its HTTP status via
// apperror's domain mapping: AppErrors carry their own status and field
// details, known domain errors get their canonical code, anything else is
// an opaque 500.
func respondAppError(w http.ResponseWriter, err error) {
	appErr := apperror.FromDomain(err)
	httputil.JSON(w, appErr.HTTPStatus, map[string]interface{}{
		"error":   appErr.Message,
		"code":    appErr.Code,
		"details": appErr.Details,
	})
}
