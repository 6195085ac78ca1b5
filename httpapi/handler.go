package httpapi

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/bucketgate/auth/jwt"
	"github.com/kbukum/bucketgate/errors"
	"github.com/kbukum/bucketgate/gateway"
	"github.com/kbukum/bucketgate/logger"
	"github.com/kbukum/bucketgate/server"
	"github.com/kbukum/bucketgate/server/middleware"
	"github.com/kbukum/bucketgate/storage"
	"github.com/kbukum/bucketgate/util"
)

const (
	fileField = "file"
	tagField  = "tag"

	// Bare presigned-download-url links always last this long.
	fileLinkMinutes = 10
)

// Handler serves the gateway routes.
type Handler struct {
	gw  *gateway.Gateway
	log *logger.Logger
}

// New creates a Handler.
func New(gw *gateway.Gateway, log *logger.Logger) *Handler {
	return &Handler{gw: gw, log: log.WithComponent("httpapi")}
}

// Register mounts every route under /api. mws run before the route
// handlers, typically auth and rate limiting.
func (h *Handler) Register(r gin.IRouter, mws ...gin.HandlerFunc) {
	api := r.Group("/api", mws...)
	read := middleware.RequireScope(jwt.ScopeRead)
	write := middleware.RequireScope(jwt.ScopeWrite)

	files := api.Group("/files")
	files.POST("/upload", write, h.Upload)
	files.GET("/download/*name", read, h.Download)
	files.GET("/presigned-download-url/*name", read, h.FileLink)
	files.DELETE("/delete/*name", write, h.Delete)
	files.GET("/list", read, h.List)

	presigned := api.Group("/presigned")
	presigned.POST("/upload-url", write, h.PresignUpload)
	presigned.GET("/download-url/*name", read, h.PresignDownload)

	advanced := api.Group("/advanced")
	advanced.GET("/versioning/list/*name", read, h.ListVersions)
	advanced.POST("/upload/encrypted", write, h.UploadEncrypted)
	advanced.GET("/tags/*name", read, h.Tags)
	advanced.POST("/locking/enable", write, h.EnableLocking)
	advanced.POST("/upload/retention", write, h.UploadWithRetention)
	advanced.GET("/metrics", read, h.Metrics)
}

// Upload stores the multipart "file" field under a derived unique key.
func (h *Handler) Upload(c *gin.Context) {
	in, err := uploadInput(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	fd, err := h.gw.Upload(c.Request.Context(), in)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, fd)
}

// UploadEncrypted stores the file with a one-time SSE-C key.
func (h *Handler) UploadEncrypted(c *gin.Context) {
	in, err := uploadInput(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	fd, err := h.gw.UploadEncrypted(c.Request.Context(), in)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, fd)
}

// UploadWithRetention stores the file under a retention lock.
func (h *Handler) UploadWithRetention(c *gin.Context) {
	cfg := h.gw.Config()
	q := retentionQuery{RetentionMode: cfg.RetentionMode, RetentionDays: cfg.RetentionDays}
	if err := bindQuery(c, &q); err != nil {
		server.RespondWithError(c, err)
		return
	}
	in, err := uploadInput(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	policy, err := h.gw.DefaultRetention(q.RetentionMode, q.RetentionDays)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	fd, err := h.gw.UploadWithRetention(c.Request.Context(), in, policy)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, fd)
}

// Download streams the object as an attachment.
func (h *Handler) Download(c *gin.Context) {
	key := objectName(c)
	body, found, err := h.gw.Download(c.Request.Context(), key)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if !found {
		server.RespondWithError(c, errors.NotFound("object", key))
		return
	}
	defer body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)})
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", body, map[string]string{
		"Content-Disposition": disposition,
	})
}

// FileLink returns a bare presigned GET URL as text.
func (h *Handler) FileLink(c *gin.Context) {
	grant, err := h.gw.PresignDownload(c.Request.Context(), objectName(c), fileLinkMinutes)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondText(c, grant.URL)
}

// Delete removes the object. Deleting a missing object succeeds.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.gw.Delete(c.Request.Context(), objectName(c)); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondText(c, "File deleted successfully")
}

// List returns every object with its static URL.
func (h *Handler) List(c *gin.Context) {
	files, err := h.gw.List(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, files)
}

// PresignUpload issues a PUT grant for ?objectName.
func (h *Handler) PresignUpload(c *gin.Context) {
	q := grantQuery{ExpiryTime: h.gw.Config().DefaultPresignMinutes}
	if err := bindQuery(c, &q); err != nil {
		server.RespondWithError(c, err)
		return
	}
	grant, err := h.gw.PresignUpload(c.Request.Context(), q.ObjectName, q.ExpiryTime)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, grant)
}

// PresignDownload issues a GET grant for the named object.
func (h *Handler) PresignDownload(c *gin.Context) {
	q := grantQuery{ExpiryTime: h.gw.Config().DefaultPresignMinutes}
	if err := bindQuery(c, &q); err != nil {
		server.RespondWithError(c, err)
		return
	}
	grant, err := h.gw.PresignDownload(c.Request.Context(), objectName(c), q.ExpiryTime)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, grant)
}

// ListVersions returns the version history of the named object.
func (h *Handler) ListVersions(c *gin.Context) {
	versions, err := h.gw.ListObjectVersions(c.Request.Context(), objectName(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, versions)
}

// Tags returns the object's tags, empty when it has none or is missing.
func (h *Handler) Tags(c *gin.Context) {
	server.RespondOK(c, h.gw.GetTags(c.Request.Context(), objectName(c)))
}

// EnableLocking sets the bucket default retention.
func (h *Handler) EnableLocking(c *gin.Context) {
	cfg := h.gw.Config()
	q := lockingQuery{Mode: cfg.RetentionMode, Days: cfg.RetentionDays}
	if err := bindQuery(c, &q); err != nil {
		server.RespondWithError(c, err)
		return
	}
	mode := storage.RetentionMode(strings.ToUpper(q.Mode))
	if err := h.gw.EnableBucketLocking(c.Request.Context(), mode, q.Days); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondText(c, "Object locking enabled successfully")
}

// Metrics returns the bucket sample.
func (h *Handler) Metrics(c *gin.Context) {
	m := h.gw.GetMetrics(c.Request.Context())
	if m == nil {
		server.RespondWithError(c, errors.StoreFailure("collect bucket metrics", nil))
		return
	}
	server.RespondOK(c, m)
}

func objectName(c *gin.Context) string {
	return util.ObjectPath(c.Param("name"))
}

// uploadInput reads the multipart file field. A missing or empty file is
// rejected before the gateway sees it.
func uploadInput(c *gin.Context) (gateway.UploadInput, error) {
	fh, err := c.FormFile(fileField)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return gateway.UploadInput{}, errors.MissingField(fileField)
		}
		return gateway.UploadInput{}, errors.Validation("malformed multipart body: " + err.Error())
	}
	if fh.Size == 0 {
		return gateway.UploadInput{}, errors.InvalidInput(fileField, "file is empty")
	}
	tags, err := parseTags(c.PostFormArray(tagField))
	if err != nil {
		return gateway.UploadInput{}, err
	}
	return gateway.UploadInput{
		Open:        openPart(fh),
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Filename:    fh.Filename,
		Tags:        tags,
	}, nil
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// parseTags reads repeated "tag" fields of the form key=value.
func parseTags(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(values))
	for _, v := range values {
		k, val, ok := strings.Cut(v, "=")
		if !ok || k == "" {
			return nil, errors.InvalidFormat(tagField, "key=value")
		}
		tags[k] = val
	}
	return tags, nil
}
