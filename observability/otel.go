package observability

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used by the "otel" observer.
const TracerName = "github.com/tailored-agentic-units/substate"

// OTelObserver records each event as a zero-length span named by the event
// type, parented to any span in the context. Error-level events mark the
// span status as an error.
type OTelObserver struct {
	tracer trace.Tracer
}

// NewOTelObserver creates an OTelObserver that starts spans on tracer.
func NewOTelObserver(tracer trace.Tracer) *OTelObserver {
	return &OTelObserver{tracer: tracer}
}

func (o *OTelObserver) OnEvent(ctx context.Context, event Event) {
	attrs := make([]attribute.KeyValue, 0, len(event.Data)+2)
	attrs = append(attrs,
		attribute.String("event.source", event.Source),
		attribute.String("event.severity", event.Level.String()),
	)
	for _, k := range slices.Sorted(maps.Keys(event.Data)) {
		attrs = append(attrs, toAttribute(k, event.Data[k]))
	}

	opts := []trace.SpanStartOption{trace.WithAttributes(attrs...)}
	if !event.Timestamp.IsZero() {
		opts = append(opts, trace.WithTimestamp(event.Timestamp))
	}

	_, span := o.tracer.Start(ctx, string(event.Type), opts...)
	if event.Level >= LevelError {
		msg := ""
		if v, ok := event.Data["error"]; ok {
			msg = fmt.Sprint(v)
		}
		span.SetStatus(codes.Error, msg)
	}

	if event.Timestamp.IsZero() {
		span.End()
	} else {
		span.End(trace.WithTimestamp(event.Timestamp))
	}
}

func toAttribute(key string, v any) attribute.KeyValue {
	switch x := v.(type) {
	case string:
		return attribute.String(key, x)
	case bool:
		return attribute.Bool(key, x)
	case int:
		return attribute.Int(key, x)
	case int64:
		return attribute.Int64(key, x)
	case float64:
		return attribute.Float64(key, x)
	case fmt.Stringer:
		return attribute.String(key, x.String())
	}
	return attribute.String(key, fmt.Sprint(v))
}
