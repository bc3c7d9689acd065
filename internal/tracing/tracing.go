// Package tracing wraps opentracing-go span creation for the resolution
// pipeline, backed by uber/jaeger-client-go as the concrete tracer. No
// example in the corpus exercises either library in committed code, so
// both are wired here following their own documented APIs rather than a
// corpus-specific wrapper.
package tracing

import (
	"context"
	"io"

	"github.com/opentracing/opentracing-go"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// InitGlobalTracer constructs a Jaeger tracer reporting as serviceName and
// installs it as opentracing's global tracer, so StartSpan below (and any
// library code that calls opentracing.StartSpanFromContext directly) picks
// it up without the caller threading a *Tracer through. The returned closer
// must be closed at shutdown to flush any buffered spans.
func InitGlobalTracer(serviceName string) (io.Closer, error) {
	cfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler:     &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeConst, Param: 1},
		Reporter:    &jaegercfg.ReporterConfig{LogSpans: false},
	}
	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// StartSpan starts a span named operationName, using any span already
// present in ctx as its parent, and returns the span plus a context carrying
// it for further nested calls.
func StartSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, operationName)
}

// FinishWithError finishes span, tagging it with error=true and logging err
// if non-nil.
func FinishWithError(span opentracing.Span, err error) {
	if err != nil {
		span.SetTag("error", true)
		span.LogKV("event", "error", "message", err.Error())
	}
	span.Finish()
}
