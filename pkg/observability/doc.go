/*
Package observability provides Prometheus metrics for the flow runtime.

Metrics are fed by runtime lifecycle hooks (graph initialize and shutdown,
node installs, control signals), by the deployment manager (trigger
durations) and by an HTTP middleware for the management API. Each Metrics
value owns its registry, so several engines can coexist in one process.

	m := observability.NewMetrics()
	eng := flow.New(flow.WithHooks(m.Hooks()), flow.WithMetrics(m))
	http.Handle("/metrics", m.Handler())
*/
package observability
