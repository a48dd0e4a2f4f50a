// Package server provides HTTP routing, middleware, and the endpoint
// handlers for the music discovery API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Handlers
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// Three handler groups exist:
//
//   - [AuthHandler]: OAuth login redirect, authorization-code callback
//     (CSRF state validation, code exchange, credential upsert), and the
//     token refresh endpoint.
//   - [APIHandler]: bearer-gated profile, listening statistics, and
//     recommendation endpoints, plus the custom recommendation proxy.
//   - [GenerateHandler]: track generation with optional authorization and
//     the degraded-result contract.
//
// # Authentication
//
// The strict endpoints extract the bearer token per request with
// [BearerToken] and answer 401 when it is absent or malformed. Tokens are
// opaque here; validation happens upstream at the provider. The generation
// endpoint treats the token as an enrichment hint only.
package server
