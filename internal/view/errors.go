package view

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

// ErrorStatus maps the domain error taxonomy onto HTTP status codes.
func ErrorStatus(err error) int {
	var validationErr *model.ValidationError
	var notFoundErr *model.NotFoundError
	var illegalErr *model.IllegalTransitionError
	var expiredErr *model.ExpiredError
	var externalErr *model.ExternalServiceError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &illegalErr):
		return http.StatusConflict
	case errors.As(err, &expiredErr):
		return http.StatusGone
	case errors.As(err, &externalErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
