package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRouteSpanUsesRouteTemplate(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })

	router := gin.New()
	router.Use(RouteSpan())
	router.GET("/api/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	handler := otelhttp.NewHandler(router, "test",
		otelhttp.WithTracerProvider(provider),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string { return r.Method }),
	)

	for _, path := range []string{"/api/orders/o-1", "/api/orders/o-2", "/api/unknown/o-3"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("expected three spans, got %d", len(spans))
	}
	want := []string{"GET /api/orders/:id", "GET /api/orders/:id", "GET"}
	for i, span := range spans {
		if span.Name() != want[i] {
			t.Fatalf("span %d: expected %q, got %q", i, want[i], span.Name())
		}
	}

	var route string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == attribute.Key("http.route") {
			route = kv.Value.AsString()
		}
	}
	if route != "/api/orders/:id" {
		t.Fatalf("expected http.route attribute, got %q", route)
	}
}
