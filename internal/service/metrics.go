package service

import (
	"context"

	"github.com/hohotang/shortlink-core/internal/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/hohotang/shortlink-core/internal/service"

// Resolution outcomes recorded on shortlink.resolutions
const (
	resultHit      = "hit"
	resultNotFound = "not_found"
	resultError    = "error"
)

type serviceMetrics struct {
	allocations metric.Int64Counter
	collisions  metric.Int64Counter
	resolutions metric.Int64Counter
}

func newServiceMetrics(meter metric.Meter) *serviceMetrics {
	return &serviceMetrics{
		allocations: counter(meter, "shortlink.allocations", "Shorten requests by outcome"),
		collisions:  counter(meter, "shortlink.collisions", "Generated codes that were already taken"),
		resolutions: counter(meter, "shortlink.resolutions", "Resolve requests by outcome"),
	}
}

func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit("{request}"))
	if err != nil {
		logger.L().Warn("Failed to create counter", zap.String("name", name), zap.Error(err))
		return noop.Int64Counter{}
	}
	return c
}

func (m *serviceMetrics) allocation(ctx context.Context, status string) {
	m.allocations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *serviceMetrics) collision(ctx context.Context) {
	m.collisions.Add(ctx, 1)
}

func (m *serviceMetrics) resolution(ctx context.Context, result string) {
	m.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
