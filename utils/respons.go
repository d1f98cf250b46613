package utils

import (
	"github.com/gin-gonic/gin"

	"github.com/qrdine/qrdine/apperr"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Error:   string(apperr.KindOf(err)),
	})
}

// RespondAppError derives the HTTP status from the error kind.
func RespondAppError(c *gin.Context, err error) {
	RespondError(c, apperr.HTTPStatus(err), err)
}
