package endpoint

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// MetricsSource contributes a named section to the /metrics document.
// Collect runs on every request; a nil result omits the section.
type MetricsSource struct {
	Name    string
	Collect func(ctx context.Context) any
}

// Metrics reports runtime memory and goroutine counts plus any sources, such
// as the sampled bucket snapshot.
func Metrics(sources ...MetricsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		body := gin.H{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"goroutines": runtime.NumGoroutine(),
			"memory": gin.H{
				"alloc_mb": m.Alloc >> 20,
				"sys_mb":   m.Sys >> 20,
				"gc_runs":  m.NumGC,
			},
		}
		for _, src := range sources {
			if v := src.Collect(c.Request.Context()); v != nil {
				body[src.Name] = v
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
