// Package gateway mediates between callers and the object store. It derives
// collision-free keys for uploads, issues time-bounded presigned URLs,
// applies retention and customer-key encryption per upload, and translates
// store failures into errors.AppError values.
//
// The Gateway is stateless past construction and safe for concurrent use.
// It never retries; a failed store call is reported once and callers decide
// whether to try again (see errors.AppError.Retryable).
//
//	gw := gateway.New(client, storeCfg, gateway.Config{}, log)
//	if err := gw.EnsureBucket(ctx, true); err != nil { ... }
//	fd, err := gw.Upload(ctx, gateway.UploadInput{Open: fh.Open, Size: fh.Size, Filename: fh.Filename})
package gateway
