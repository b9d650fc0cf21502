package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"boxoffice/internal/shared/apperr"
	"boxoffice/pkg/logger"
)

// StandardApiResponse is the envelope of every JSON response.
type StandardApiResponse struct {
	Status     string      `json:"status"` // success or error
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
}

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// StatusFor maps an error of the apperr taxonomy to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrReconciliation):
		return http.StatusInternalServerError
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err in the standard envelope. Internal failures are
// logged and reported without their details.
func RespondError(c *gin.Context, err error) {
	code := StatusFor(err)
	msg := apperr.Message(err)
	if code >= http.StatusInternalServerError && code != http.StatusBadGateway {
		logger.GetDefault().LogHTTPError(c, err, code)
		msg = "internal server error"
		if errors.Is(err, apperr.ErrReconciliation) {
			msg = "payment was processed but could not be recorded; support has been notified"
		}
	}
	RespondJSON(c, "error", code, msg, nil, nil)
}
