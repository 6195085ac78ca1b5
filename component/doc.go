// Package component defines lifecycle-managed infrastructure for bucketgate.
//
// A Component is started in registration order by the bootstrap package and
// stopped in reverse. Components may also implement Describable to appear in
// the startup summary, and RouteProvider to report HTTP routes.
package component
