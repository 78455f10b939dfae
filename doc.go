// Package motors implements the Parkmoor Motors dealership site: a
// server-rendered storefront with a credential-based authentication and
// role-gated authorization core.
//
// The package exposes the pieces the HTTP layer composes: a password hasher,
// a signed session-token codec, a cookie-backed flash queue, the login and
// registration flows, and middleware gates for protected routes. Inventory
// and account controllers plus their bun-backed repositories live alongside
// the core so the whole site shares one request pipeline.
package motors
