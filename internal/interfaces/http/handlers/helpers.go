package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/interfaces/http/dto"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type errorMapping struct {
	err          error
	status       int
	code         string
	businessCode int
}

var errorMappings = []errorMapping{
	{domainErrors.ErrPaymentNotFound, http.StatusOK, "not_found", 20000},
	{domainErrors.ErrDuplicateIdempotencyKey, http.StatusConflict, "duplicate_request", 0},
	{domainErrors.ErrDuplicateOrderCode, http.StatusConflict, "duplicate_order_code", 0},
	{domainErrors.ErrProviderUnavailable, http.StatusInternalServerError, "provider_unavailable", 0},
	{domainErrors.ErrProviderRejected, http.StatusUnprocessableEntity, "provider_rejected", 0},
	{domainErrors.ErrUnsupportedProvider, http.StatusBadRequest, "unsupported_provider", 0},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error to the RPC surface's HTTP+business-code
// scheme (spec.md §4.7/§7). PaymentNotFound is a business error, not an
// HTTP failure — the RPC surface is not a REST resource API.
func writeError(w http.ResponseWriter, err error) {
	resp := dto.ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			resp.BusinessCode = m.businessCode
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in RPC handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
