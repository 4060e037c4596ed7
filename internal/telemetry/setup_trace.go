// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"
	"errors"
	"log/slog"

	mexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	telemetryexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/cloud"
)

// SetupOpenTelemetry registers the global propagator, tracer provider and
// meter provider for the analysis pipeline.
//
// Spans are always recorded so that every log line written with a request
// context carries its trace id. Export is decided by the configuration: with
// a Google project id, spans go to Cloud Trace and the command and model
// counters go to Cloud Monitoring; without one, nothing leaves the process.
//
// Inputs:
//   - ctx: Used for resource detection and for exporter construction.
//   - config: Provides the service name and the optional Google project id.
//
// Returns:
//   - shutdown: Flushes and stops every registered provider. Call it once on
//     exit; calling it again is a no-op.
//   - err: A resource or exporter construction failure.
func SetupOpenTelemetry(ctx context.Context, config *cloud.Config) (shutdown func(context.Context) error, err error) {
	var providers []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var err error
		for i := len(providers) - 1; i >= 0; i-- {
			err = errors.Join(err, providers[i](ctx))
		}
		providers = nil
		return err
	}

	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	res, err := newResource(ctx, config.Application.Name)
	if err != nil {
		return nil, err
	}

	projectID := config.Application.GoogleProjectId
	tp, err := newTracerProvider(res, projectID)
	if err != nil {
		return nil, err
	}
	providers = append(providers, tp.Shutdown)
	otel.SetTracerProvider(tp)

	mp, err := newMeterProvider(res, projectID)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	providers = append(providers, mp.Shutdown)
	otel.SetMeterProvider(mp)

	if projectID == "" {
		slog.Debug("telemetry export disabled, no google project configured")
	} else {
		slog.Debug("telemetry export enabled", "project", projectID)
	}
	return shutdown, nil
}

// newResource describes this service. Partial detection, which is the normal
// case off Google Cloud, is logged and tolerated.
func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithDetectors(gcp.NewDetector()),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		slog.Warn("partial resource detection", "error", err)
		return res, nil
	}
	return res, err
}

func newTracerProvider(res *resource.Resource, projectID string) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if projectID != "" {
		exporter, err := telemetryexporter.New(telemetryexporter.WithProjectID(projectID))
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// newMeterProvider returns a provider without readers when there is nothing
// to export to, so instruments stay cheap.
func newMeterProvider(res *resource.Resource, projectID string) (*metric.MeterProvider, error) {
	opts := []metric.Option{metric.WithResource(res)}
	if projectID != "" {
		exporter, err := mexporter.New(mexporter.WithProjectID(projectID))
		if err != nil {
			return nil, err
		}
		opts = append(opts, metric.WithReader(metric.NewPeriodicReader(exporter)))
	}
	return metric.NewMeterProvider(opts...), nil
}
