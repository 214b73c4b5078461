/*
Package observability turns session lifecycle hooks into Prometheus metrics
and structured log lines.

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hooks := domain.MergeHooks(metrics.Hooks(), observability.LogHooks(logger))
	s := session.New("", session.WithLifecycleHooks(hooks))

The collectors are exposed with Metrics.Handler, usually mounted at /metrics.
*/
package observability
