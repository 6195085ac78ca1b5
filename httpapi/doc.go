// Package httpapi exposes the gateway over HTTP with gin.
//
//	/api/files      upload, download, presigned-download-url, delete, list
//	/api/presigned  upload-url, download-url
//	/api/advanced   versioning/list, upload/encrypted, tags, locking/enable,
//	                upload/retention, metrics
//
// Object names are captured with catch-all parameters so keys may contain
// slashes. Errors are rendered as the errors.AppError JSON body.
package httpapi
