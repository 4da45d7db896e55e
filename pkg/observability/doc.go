/*
Package observability turns engine lifecycle hooks into Prometheus metrics
and structured log lines.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := domain.CombineHooks(metrics.Hooks(), observability.LoggingHooks(logger))
	eng, err := quill.NewEssayEngine(completer, searcher, quill.WithLifecycleHooks(hooks))
*/
package observability
