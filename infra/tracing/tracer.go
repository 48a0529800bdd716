package tracing

import (
	"io"

	"workhub/common"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegerlog "github.com/uber/jaeger-client-go/log"
	"github.com/uber/jaeger-lib/metrics"
)

// InitTracer installs the jaeger tracer as the opentracing global tracer.
// Sampling and agent endpoint come from the standard JAEGER_* environment
// variables; a noop closer is returned when configuration fails so the
// service can still run untraced.
func InitTracer() io.Closer {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		common.Log.Warnf("jaeger configuration failed, tracing disabled: %v", err)
		return noopCloser{}
	}
	cfg.ServiceName = common.GetServiceName()
	if cfg.Sampler.Type == "" {
		cfg.Sampler.Type = jaeger.SamplerTypeConst
		cfg.Sampler.Param = 1
	}

	tracer, closer, err := cfg.NewTracer(
		jaegercfg.Logger(jaegerlog.NullLogger),
		jaegercfg.Metrics(metrics.NullFactory),
	)
	if err != nil {
		common.Log.Warnf("jaeger tracer creation failed, tracing disabled: %v", err)
		return noopCloser{}
	}
	opentracing.SetGlobalTracer(tracer)
	return closer
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
