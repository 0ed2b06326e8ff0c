package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// recordingMetrics captures RecordOp calls for assertions.
type recordingMetrics struct {
	calls []recordedOp
}

type recordedOp struct {
	meta OpMeta
	dur  time.Duration
	err  error
}

func (m *recordingMetrics) RecordOp(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	m.calls = append(m.calls, recordedOp{meta: meta, dur: duration, err: err})
}

func TestMiddleware_Do_Success(t *testing.T) {
	metrics := &recordingMetrics{}
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)
	mw := NewMiddleware(newNoopTracer(), metrics, logger)

	var ran bool
	err := mw.Do(context.Background(), OpMeta{Component: "service", Op: "authenticate"}, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran {
		t.Fatal("wrapped function did not run")
	}

	if len(metrics.calls) != 1 {
		t.Fatalf("got %d metric calls, want 1", len(metrics.calls))
	}
	if metrics.calls[0].err != nil {
		t.Errorf("recorded err = %v, want nil", metrics.calls[0].err)
	}
	if metrics.calls[0].meta.Op != "authenticate" {
		t.Errorf("recorded op = %q", metrics.calls[0].meta.Op)
	}

	if !strings.Contains(buf.String(), "auth operation completed") {
		t.Errorf("log output missing completion line: %s", buf.String())
	}
}

func TestMiddleware_Do_ErrorPropagates(t *testing.T) {
	metrics := &recordingMetrics{}
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)
	mw := NewMiddleware(newNoopTracer(), metrics, logger)

	opErr := errors.New("token expired")
	err := mw.Do(context.Background(), OpMeta{Op: "validate_token"}, func(ctx context.Context) error {
		return opErr
	})
	if !errors.Is(err, opErr) {
		t.Fatalf("Do() error = %v, want %v", err, opErr)
	}

	if len(metrics.calls) != 1 {
		t.Fatalf("got %d metric calls, want 1", len(metrics.calls))
	}
	if metrics.calls[0].err == nil {
		t.Error("recorded err = nil, want token expired")
	}

	var entry map[string]any
	if uerr := json.Unmarshal(buf.Bytes(), &entry); uerr != nil {
		t.Fatalf("log line is not JSON: %v", uerr)
	}
	if entry["level"] != "warn" {
		t.Errorf("log level = %v, want warn", entry["level"])
	}
	if entry["error"] != "token expired" {
		t.Errorf("log error field = %v", entry["error"])
	}
}

func TestMiddleware_Do_ContextReachesFn(t *testing.T) {
	type ctxKey struct{}
	mw := NopMiddleware()

	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	err := mw.Do(ctx, OpMeta{Op: "logout"}, func(inner context.Context) error {
		if inner.Value(ctxKey{}) != "v" {
			t.Error("context value not propagated into wrapped fn")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
}

func TestMiddlewareFromObserver(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "agentauth"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	if err := mw.Do(context.Background(), OpMeta{Op: "noop"}, func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("Do() error = %v", err)
	}
}

func TestMiddlewareFromObserver_NilObserver(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("error = %v, want ErrNilObserver", err)
	}
}
