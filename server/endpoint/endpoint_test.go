package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/bucketgate/component"
)

func init() { gin.SetMode(gin.TestMode) }

func get(h gin.HandlerFunc) *httptest.ResponseRecorder {
	engine := gin.New()
	engine.GET("/", h)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	return rr
}

func checker(statuses ...component.HealthStatus) HealthChecker {
	return func(context.Context) []component.Health {
		out := make([]component.Health, 0, len(statuses))
		for i, s := range statuses {
			out = append(out, component.Health{Name: string(rune('a' + i)), Status: s})
		}
		return out
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checker    HealthChecker
		wantStatus string
		wantCode   int
	}{
		{"no checker", nil, "healthy", http.StatusOK},
		{"all healthy", checker(component.StatusHealthy, component.StatusHealthy), "healthy", http.StatusOK},
		{"degraded", checker(component.StatusHealthy, component.StatusDegraded), "degraded", http.StatusOK},
		{"unhealthy wins", checker(component.StatusDegraded, component.StatusUnhealthy), "unhealthy", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(Health("bucketgate", tt.checker))
			if rr.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rr.Code, tt.wantCode)
			}
			var body struct {
				Status  string `json:"status"`
				Service string `json:"service"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantStatus || body.Service != "bucketgate" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestReadiness(t *testing.T) {
	if rr := get(Readiness("bucketgate", checker(component.StatusDegraded))); rr.Code != http.StatusOK {
		t.Errorf("degraded readiness = %d, want 200", rr.Code)
	}
	if rr := get(Readiness("bucketgate", checker(component.StatusUnhealthy))); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy readiness = %d, want 503", rr.Code)
	}
}

func TestInfoAndVersion(t *testing.T) {
	rr := get(Info("bucketgate"))
	var info map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info["service"] != "bucketgate" || info["version"] == "" {
		t.Errorf("info = %v", info)
	}

	rr = get(Version())
	if rr.Code != http.StatusOK {
		t.Errorf("version code = %d", rr.Code)
	}
}

func TestLivenessAndMetrics(t *testing.T) {
	if rr := get(Liveness("bucketgate")); rr.Code != http.StatusOK {
		t.Errorf("liveness = %d", rr.Code)
	}
	rr := get(Metrics(
		MetricsSource{Name: "bucket", Collect: func(context.Context) any { return map[string]any{"bucketName": "files"} }},
		MetricsSource{Name: "absent", Collect: func(context.Context) any { return nil }},
	))
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["goroutines"]; !ok {
		t.Errorf("metrics body = %v", body)
	}
	bucket, ok := body["bucket"].(map[string]any)
	if !ok || bucket["bucketName"] != "files" {
		t.Errorf("bucket section = %v", body["bucket"])
	}
	if _, ok := body["absent"]; ok {
		t.Error("nil section should be omitted")
	}
}
