/*
Package observability turns controller lifecycle events into Prometheus
metrics and structured log lines.

Hooks from several sources can be merged with Combine and passed to
daydream.WithLifecycleHooks.
*/
package observability
