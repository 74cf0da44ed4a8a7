package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/readback/readback/internal/common"
)

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

// statusFor maps service errors to an HTTP status and the message shown to
// the client. Unrecognized errors are not echoed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, common.ErrForbidden),
		errors.Is(err, common.ErrSectionLimit),
		errors.Is(err, common.ErrVoiceNotAvailable):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrEmailAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrConfiguration),
		errors.Is(err, common.ErrSynthesis):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, common.ErrorInternal.Error()
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, errorBody(msg))
}
