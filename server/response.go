package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/bucketgate/errors"
)

// RespondWithError writes err as the structured error body. Errors that are
// not AppErrors become a generic 500.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.Wrap(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends a 200 response with data as the bare body.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// RespondText sends a 200 text/plain body.
func RespondText(c *gin.Context, s string) {
	c.String(http.StatusOK, s)
}
