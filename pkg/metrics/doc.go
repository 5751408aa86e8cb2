// Package metrics defines Prometheus metrics for the credential subsystem,
// covering device logins, token refreshes, and resolver lookups.
package metrics
