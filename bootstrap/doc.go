// Package bootstrap orchestrates the service lifecycle.
//
// Startup runs in a fixed order: registered components start, OnStart hooks
// run (the gateway ensures its bucket here), OnConfigure callbacks wire
// handlers, the ready check logs unhealthy components, and OnReady hooks
// begin serving. Shutdown runs OnStop hooks, then stops components in
// reverse registration order.
package bootstrap
