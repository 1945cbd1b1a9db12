// Package observability provides OpenTelemetry tracing and metrics for
// demandflow.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("flowdemo"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "scenario.run")
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("flowdemo"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewStreamMetrics(observability.Meter("flowdemo"))
//	src := flow.Range(0, 10, flow.WithMetrics(metrics))
package observability
