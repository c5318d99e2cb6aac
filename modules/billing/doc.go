// Package billing wires the subscription engine to HTTP: tenant-facing
// subscription and checkout endpoints, the per-provider webhook ingress,
// entitlement middleware for gated routes, and the periodic expiry sweeper.
//
// The tenant routes expect the tenant resolution middleware upstream; the
// webhook routes authenticate by signature instead and must receive the
// raw request body untouched by any parsing middleware.
package billing
