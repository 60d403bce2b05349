package tracing

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	settlementCurrencyKey = attribute.Key("settlement.currency")
	orderIDKey            = attribute.Key("settlement.order_id")
	emailKey              = attribute.Key("settlement.wallet_email")
)

type Config struct {
	CollectorHost      string
	ServiceName        string
	Environment        string
	SettlementCurrency string
}

func Resource(conf Config) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(conf.ServiceName),
		semconv.DeploymentEnvironmentKey.String(conf.Environment),
		settlementCurrencyKey.String(conf.SettlementCurrency),
	)
}

func InitTracing(conf Config) (*trace.TracerProvider, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(fmt.Sprintf("%s:4318", conf.CollectorHost)),
			otlptracehttp.WithInsecure(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(Resource(conf)),
	)

	otel.SetTracerProvider(tracerProvider)

	return tracerProvider, nil
}

// Middleware opens one span per request. Order ids and wallet emails from
// the route are recorded so a settlement can be followed across its webhook,
// poll and operator calls.
func Middleware(tracer oteltrace.Tracer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			ctx, span := tracer.Start(req.Context(), fmt.Sprintf("[%s] %s", req.Method, c.Path()),
				oteltrace.WithSpanKind(oteltrace.SpanKindServer),
				oteltrace.WithAttributes(
					semconv.HTTPMethodKey.String(req.Method),
					semconv.HTTPRouteKey.String(c.Path()),
				),
			)
			defer span.End()

			c.SetRequest(req.WithContext(ctx))

			if orderID := c.Param("order_id"); orderID != "" {
				span.SetAttributes(orderIDKey.String(orderID))
			}
			if email := c.Param("email"); email != "" {
				span.SetAttributes(emailKey.String(email))
			}

			err := next(c)
			if err != nil {
				span.RecordError(err)
			}

			status := c.Response().Status
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
			if status >= 500 {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			}

			return err
		}
	}
}
