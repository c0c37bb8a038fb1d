package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var sensitiveKeys = []string{"password", "token", "secret", "authorization", "cookie", "email"}

// SafeAttributes drops attributes whose key looks like it carries credentials or personal data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if isSensitiveKey(string(attr.Key)) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError returns an error suitable for span recording. Messages that mention
// sensitive fields are replaced with a generic one.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if isSensitiveKey(msg) {
		return errors.New("redacted error")
	}
	return err
}

// ExtractContext reads propagated trace headers into ctx.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func isSensitiveKey(value string) bool {
	value = strings.ToLower(value)
	for _, key := range sensitiveKeys {
		if strings.Contains(value, key) {
			return true
		}
	}
	return false
}
