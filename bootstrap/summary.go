package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/logger"
)

// PipelineInfo describes one assembled pipeline.
type PipelineInfo struct {
	Name   string
	Stages []string
}

// Summary tracks what the application assembled during startup.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	pipelines       []PipelineInfo
}

// NewSummary creates a new bootstrap summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackPipeline records a pipeline and its stage names, upstream first.
func (s *Summary) TrackPipeline(name string, stages ...string) {
	s.pipelines = append(s.pipelines, PipelineInfo{Name: name, Stages: stages})
}

// Pipelines returns the tracked pipelines.
func (s *Summary) Pipelines() []PipelineInfo {
	return s.pipelines
}

// Log writes the startup summary and live component health as structured entries.
func (s *Summary) Log(ctx context.Context, registry *component.Registry, log *logger.Logger) {
	log.Info("Application started", logger.Fields(
		"name", s.serviceName,
		"version", s.version,
		logger.FieldDuration, s.startupDuration.Milliseconds(),
	))
	if registry == nil {
		return
	}
	for _, h := range registry.HealthAll(ctx) {
		fields := logger.Fields(logger.FieldComponent, h.Name, "status", string(h.Status))
		if h.Message != "" {
			fields["message"] = h.Message
		}
		log.Debug("Component health", fields)
	}
}

// Render writes a human-readable tree of the tracked pipelines and live
// component health to w.
func (s *Summary) Render(ctx context.Context, w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n%s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if len(s.pipelines) > 0 {
		fmt.Fprintf(w, "\nPipelines\n")
		for i, p := range s.pipelines {
			fmt.Fprintf(w, "   %s %s: %s\n", branch(i, len(s.pipelines)), p.Name, strings.Join(p.Stages, " -> "))
		}
	}

	if registry != nil {
		results := registry.HealthAll(ctx)
		if len(results) > 0 {
			fmt.Fprintf(w, "\nHealth\n")
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = " (" + h.Message + ")"
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", branch(i, len(results)), healthStatusIcon(h.Status), h.Name, h.Status, msg)
			}
		}
	}
	fmt.Fprintln(w)
}

func branch(i, n int) string {
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
