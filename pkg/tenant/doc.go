// Package tenant resolves which tenant owns a caller's data.
//
// SafeIn bills per owning account: an admin account is its own tenant, while
// employee accounts act on behalf of the admin that registered them. The
// Resolver maps any authenticated account to the canonical tenant id used
// for data scoping and entitlement checks, first via the worker record's
// explicit account link and then via a case-insensitive active-only email
// match.
//
// Resolved mappings are cached with a short TTL; the cache is an interface
// so it can be swapped or disabled in tests.
package tenant
