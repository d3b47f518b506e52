package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestCtxUsesInstalledLogger(t *testing.T) {
	var buf bytes.Buffer
	log := captureLogger(&buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithLogger(ctx, log)

	Ctx(ctx).Info("hello")

	out := buf.String()
	if !strings.Contains(out, "req-1") || !strings.Contains(out, "user-1") {
		t.Errorf("record missing correlation fields: %s", out)
	}
}

func TestWithRequestIDGeneratesWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if RequestIDFromContext(ctx) == "" {
		t.Error("empty request ID was not replaced with a generated one")
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Error("no fallback logger for a bare context")
	}
}
