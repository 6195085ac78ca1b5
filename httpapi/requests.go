package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/bucketgate/errors"
	"github.com/kbukum/bucketgate/validation"
)

// grantQuery is the query of presigned-URL routes.
type grantQuery struct {
	ObjectName string `form:"objectName"`
	ExpiryTime int    `form:"expiryTime" validate:"gte=1,lte=10080"`
}

// retentionQuery is the query of upload/retention. Modes are checked by
// the gateway, case-insensitively.
type retentionQuery struct {
	RetentionMode string `form:"retentionMode"`
	RetentionDays int    `form:"retentionDays" validate:"gte=1,lte=36500"`
}

// lockingQuery is the query of locking/enable.
type lockingQuery struct {
	Mode string `form:"mode"`
	Days int    `form:"days" validate:"gte=1,lte=36500"`
}

// bindQuery binds the query string into dst and validates it. Values that
// do not parse, such as expiryTime=abc, are INVALID_INPUT.
func bindQuery(c *gin.Context, dst any) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return errors.Validation("malformed query: " + err.Error())
	}
	return validation.Validate(dst)
}
