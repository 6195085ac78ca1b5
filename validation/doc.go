// Package validation turns invalid caller input into INVALID_INPUT AppErrors.
//
// Struct tags (go-playground/validator) cover request DTOs bound at the HTTP
// edge:
//
//	type grantQuery struct {
//	    ObjectName string `form:"objectName" validate:"required"`
//	    Expiry     int    `form:"expiryTime" validate:"min=1,max=10080"`
//	}
//	err := validation.Validate(q)
//
// The chained Validator covers checks that do not fit on a tag.
package validation
