// Package entitlement answers "may this tenant do X" from subscription
// state: pure predicates over a subscription record, request gates that
// fail with typed errors at the access-control boundary, and trial limit
// checks backed by live resource counts.
//
// The two check families deliberately fail in opposite directions. Premium
// and active-subscription gates fail closed: no subscription record means
// no entitlement. Trial limit checks fail open: ceilings apply only to an
// explicit trialing status, so a tenant that was never assigned a plan is
// not blocked from first-time usage.
package entitlement
