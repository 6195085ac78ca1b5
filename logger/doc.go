// Package logger provides structured logging for bucketgate using zerolog.
//
// Loggers are scoped by service and component and accept optional field maps:
//
//	log := base.WithComponent("gateway")
//	log.Info("object uploaded", logger.Fields("bucket", "uploads", "key", key))
//
// Request-scoped values (request id, trace id) are carried on the context
// and attached with WithContext.
package logger
