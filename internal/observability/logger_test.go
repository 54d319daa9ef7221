package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/geocoder89/speechgate/internal/actorctx"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLoggerAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.InfoContext(ctx, "hello")
	span.End()

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}

	if rec["trace_id"] != span.SpanContext().TraceID().String() {
		t.Fatalf("trace_id = %v, want %s", rec["trace_id"], span.SpanContext().TraceID())
	}
	if rec["service"] != "speechgate" {
		t.Fatalf("service = %v", rec["service"])
	}
}

func TestLoggerDebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf, "prod").Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record emitted outside dev: %s", buf.String())
	}

	newLogger(&buf, "dev").Debug("shown")
	if buf.Len() == 0 {
		t.Fatalf("debug record missing in dev")
	}
}

func TestLoggerAddsCallerEmail(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	ctx := actorctx.WithIdentity(context.Background(), "jane@example.com", "Jane")
	log.With("op", "users.save").ErrorContext(ctx, "update login date failed")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}

	if rec["email"] != "jane@example.com" {
		t.Fatalf("email = %v, want jane@example.com", rec["email"])
	}
	if _, ok := rec["trace_id"]; ok {
		t.Fatalf("trace_id set without an active span: %v", rec)
	}

	buf.Reset()
	log.Info("anonymous")

	if bytes.Contains(buf.Bytes(), []byte(`"email"`)) {
		t.Fatalf("email attribute on a record without a caller: %s", buf.String())
	}
}
