package exporters

import (
	"context"
	"testing"
)

func TestNewTracingExporter(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		exporter string
		env      map[string]string
		wantErr  bool
	}{
		{name: "stdout", exporter: "stdout"},
		{name: "none", exporter: "none"},
		{name: "empty is none", exporter: ""},
		{name: "otlp without endpoint", exporter: "otlp", wantErr: true},
		{
			name:     "otlp with endpoint",
			exporter: "otlp",
			env:      map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317"},
		},
		{name: "jaeger without endpoint", exporter: "jaeger", wantErr: true},
		{name: "unknown", exporter: "statsd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
			t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			exp, err := NewTracingExporter(ctx, tt.exporter)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTracingExporter(%q) error = %v, wantErr %v", tt.exporter, err, tt.wantErr)
			}
			if err == nil {
				if exp == nil {
					t.Fatal("NewTracingExporter() returned nil exporter")
				}
				_ = exp.Shutdown(ctx)
			}
		})
	}
}

func TestNewMetricsReader(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		exporter string
		wantErr  bool
	}{
		{name: "stdout", exporter: "stdout"},
		{name: "prometheus", exporter: "prometheus"},
		{name: "none", exporter: "none"},
		{name: "empty is none", exporter: ""},
		{name: "otlp without endpoint", exporter: "otlp", wantErr: true},
		{name: "unknown", exporter: "graphite", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
			t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

			reader, err := NewMetricsReader(ctx, tt.exporter)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMetricsReader(%q) error = %v, wantErr %v", tt.exporter, err, tt.wantErr)
			}
			if err == nil {
				if reader == nil {
					t.Fatal("NewMetricsReader() returned nil reader")
				}
				_ = reader.Shutdown(ctx)
			}
		})
	}
}
