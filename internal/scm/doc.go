// Package scm is the client for the remote policy store (a Strata Cloud
// Manager style REST API).
//
// NewClient authenticates with OAuth2 client credentials scoped to the tenant
// service group. Requests go through a go-retryablehttp client that retries
// 429 and 5xx responses, behind an optional token bucket rate limiter.
//
// SecurityRules and Addresses return per-kind stores with List, Create,
// Update and Delete; both satisfy reconciler.Store. Commit pushes the
// candidate configuration of a set of folders and polls the resulting job.
//
// Errors are typed so callers can tell fatal from scoped failures:
//   - *AuthError: credentials rejected (fatal)
//   - *ConnectionError: the store could not be reached (fatal)
//   - *APIError: the store rejected one request
package scm
