package logger

import (
	"context"
	"testing"
)

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should fall back to the default logger")
	}

	l, buf := newBufferLogger(t, "json")
	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("hello")
	if buf.Len() == 0 {
		t.Error("logger from context should produce output")
	}
}

func TestRequestID(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext() = %q, want empty", got)
	}
	ctx := WithRequestID(context.Background(), "01J0000000000000000000000")
	if got := RequestIDFromContext(ctx); got != "01J0000000000000000000000" {
		t.Errorf("RequestIDFromContext() = %q", got)
	}
}

func TestL(t *testing.T) {
	l, buf := newBufferLogger(t, "json")
	ctx := WithLogger(context.Background(), l)

	L(ctx).Info("no id")
	if _, ok := decodeLine(t, buf)["request_id"]; ok {
		t.Error("request_id should be absent")
	}

	buf.Reset()
	L(WithRequestID(ctx, "req-1")).Info("with id")
	if got := decodeLine(t, buf)["request_id"]; got != "req-1" {
		t.Errorf("request_id = %v", got)
	}
}
