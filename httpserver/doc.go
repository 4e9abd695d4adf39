/*
Package httpserver runs the registry API.

The server mounts the routes of api/handlers behind the go-utils request
logger, adds health endpoints, and optionally the pprof API under /debug.
Prometheus metrics are served by a metrics.MetricsServer on a separate
address.

Health endpoints:

  - GET /livez - always 200 while the process runs
  - GET /readyz - 200 when ready, 503 while draining
  - GET /drain - mark the server not ready
  - GET /undrain - mark the server ready again

Shutdown drains for DrainDuration before stopping the listeners, then waits
up to GracefulShutdownDuration for in-flight requests.

Example usage:

	metricsSrv, _ := metrics.New(common.PackageName, cfg.MetricsAddr)
	service := registry.NewService(backend, heads, registry.MultiSink{
		registry.NewLogSink(log),
		metricsSrv.EventCounter(),
	}, log)
	if err := service.Load(ctx); err != nil {
		...
	}

	srv, err := httpserver.New(cfg, metricsSrv, handlers.NewHandler(service, metricsSrv, log))
	if err != nil {
		...
	}
	srv.RunInBackground()
	defer srv.Shutdown()
*/
package httpserver
