package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/lanzalife/internal/logging"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithServerError logs err against the request and answers with a
// generic 500.
func RespondWithServerError(c *gin.Context, err error, customMessage string) {
	_ = c.Error(err)
	logging.FromContext(c).Error().Err(err).Msg(customMessage)
	RespondWithError(c, http.StatusInternalServerError, customMessage)
}
