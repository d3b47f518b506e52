package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/errata-io/errata/backend/internal/apperror"
)

// retryAfterSeconds is the hint sent with retryable failures.
const retryAfterSeconds = 30

// HTTPStatus maps an error category to the response status code.
// Retryable DATABASE and EXTERNAL_SERVICE failures answer 503 so clients
// and load balancers treat them as transient.
func HTTPStatus(e *apperror.Error) int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Category {
	case apperror.CategoryValidation:
		return http.StatusBadRequest
	case apperror.CategoryAuth:
		return http.StatusUnauthorized
	case apperror.CategoryBusinessLogic:
		return http.StatusUnprocessableEntity
	case apperror.CategoryExternalService:
		if e.Retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case apperror.CategoryDatabase:
		if e.Retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Write formats err and writes it to the gin context, setting
// Retry-After on transient failures.
func (f *Formatter) Write(c *gin.Context, err *apperror.Error) {
	payload := f.Format(err)
	if err != nil && err.Retryable {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	c.JSON(HTTPStatus(err), payload)
}
