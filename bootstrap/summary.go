package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/bucketgate/component"
)

// Summary collects what the service started with and prints it once the
// service is ready.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	tracked         []component.Component
	out             io.Writer
}

// NewSummary creates a summary that prints to os.Stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stdout}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Track adds a component whose lifecycle is driven by hooks rather than the
// registry, such as the HTTP server started in OnReady.
func (s *Summary) Track(c component.Component) {
	s.tracked = append(s.tracked, c)
}

// DisplaySummary prints infrastructure descriptions, routes and live health.
// Describable and RouteProvider components, registered or tracked,
// contribute automatically.
func (s *Summary) DisplaySummary(registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	var all []component.Component
	if registry != nil {
		all = append(all, registry.All()...)
	}
	all = append(all, s.tracked...)

	var infra []component.Description
	var routes []component.Route
	for _, c := range all {
		if d, ok := c.(component.Describable); ok {
			infra = append(infra, d.Describe())
		}
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}

	if len(infra) > 0 {
		fmt.Fprintf(w, "\n📊 Infrastructure\n")
		for i, d := range infra {
			details := d.Details
			if d.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, d.Port)
			}
			fmt.Fprintf(w, "   %s %s [%s]: %s\n", treePrefix(i, len(infra)), d.Name, d.Type, details)
		}
	}

	if len(routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s -> %s\n", treePrefix(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}

	ctx := context.Background()
	var results []component.Health
	if registry != nil {
		results = registry.HealthAll(ctx)
	}
	for _, c := range s.tracked {
		results = append(results, c.Health(ctx))
	}
	if len(results) > 0 {
		fmt.Fprintf(w, "\n🏥 Health\n")
		for i, h := range results {
			msg := ""
			if h.Message != "" {
				msg = " (" + h.Message + ")"
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(results)), healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
