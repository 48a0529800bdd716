package es

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/mocktracer"
)

type alwaysFailedTransport struct {
}

func (t *alwaysFailedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, errors.New("mock error")
}

func tracedGet(tracer *mocktracer.MockTracer, transport http.RoundTripper, url string) (*http.Response, error) {
	client := &http.Client{Transport: &TracingTransport{Transport: transport}}
	req, err := http.NewRequest("GET", url, nil)
	Expect(err).To(BeNil())

	clientSpan := tracer.StartSpan("client")
	req = req.WithContext(opentracing.ContextWithSpan(context.Background(), clientSpan))
	res, err := client.Do(req)
	clientSpan.Finish()
	return res, err
}

// expectChildSpan returns the child span after verifying its lineage.
func expectChildSpan(tracer *mocktracer.MockTracer) *mocktracer.MockSpan {
	spans := tracer.FinishedSpans()
	Expect(len(spans)).To(Equal(2))

	parent, child := spans[1], spans[0]
	Expect(parent.OperationName).To(Equal("client"))
	Expect(parent.ParentID).To(BeZero())

	Expect(child.OperationName).To(Equal("GET "))
	Expect(child.ParentID).To(Equal(parent.SpanContext.SpanID))
	Expect(child.SpanContext.SpanID).ToNot(BeZero())
	Expect(child.SpanContext.TraceID).To(Equal(parent.SpanContext.TraceID))
	Expect(child.SpanContext.Sampled).To(BeTrue())
	return child
}

func TestTracingTransport(t *testing.T) {
	RegisterTestingT(t)

	tracer := mocktracer.New()
	opentracing.SetGlobalTracer(tracer)

	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer.Close()
	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer badServer.Close()

	t.Run("no span in context", func(t *testing.T) {
		tracer.Reset()

		client := &http.Client{Transport: &TracingTransport{Transport: http.DefaultTransport}}
		req, err := http.NewRequest("GET", okServer.URL, nil)
		Expect(err).To(BeNil())
		res, err := client.Do(req)
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusOK))

		Expect(len(tracer.FinishedSpans())).To(BeZero())
	})

	t.Run("successful request", func(t *testing.T) {
		tracer.Reset()

		res, err := tracedGet(tracer, http.DefaultTransport, okServer.URL)
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusOK))

		child := expectChildSpan(tracer)
		Expect(child.Tags()).To(Equal(map[string]interface{}{
			"span.kind":        ext.SpanKindEnum("client"),
			"http.url":         okServer.URL,
			"http.method":      "GET",
			"http.status_code": uint16(200),
			"error":            false,
		}))
	})

	t.Run("error status", func(t *testing.T) {
		tracer.Reset()

		res, err := tracedGet(tracer, http.DefaultTransport, badServer.URL)
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusBadRequest))

		child := expectChildSpan(tracer)
		Expect(child.Tags()).To(Equal(map[string]interface{}{
			"span.kind":        ext.SpanKindEnum("client"),
			"http.url":         badServer.URL,
			"http.method":      "GET",
			"http.status_code": uint16(400),
			"error":            true,
		}))
	})

	t.Run("transport failure without a response", func(t *testing.T) {
		tracer.Reset()

		res, err := tracedGet(tracer, &alwaysFailedTransport{}, "http://127.0.0.1:12345")
		Expect(res).To(BeNil())
		var urlErr *url.Error
		Expect(errors.As(err, &urlErr)).To(BeTrue())
		Expect(urlErr.Err.Error()).To(Equal("mock error"))

		child := expectChildSpan(tracer)
		Expect(child.Tags()).To(Equal(map[string]interface{}{
			"span.kind":    ext.SpanKindEnum("client"),
			"http.url":     "http://127.0.0.1:12345",
			"http.method":  "GET",
			"error":        true,
			"error.detail": "mock error",
		}))
	})
}
