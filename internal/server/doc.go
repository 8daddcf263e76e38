// Package server provides HTTP routing, middleware, and the handlers behind
// the service's HTTP wrapper.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Processing Endpoint
//
// [ProcessHandler] serves POST /scrape: it normalizes the requested username,
// runs the scrape stage, and optionally classifies the collected titles.
// Stage errors map to status codes (404 unknown profile, 429 blocked,
// 504 timeout) with a {"detail": ...} body.
//
// # OAuth Callback Handler
//
// [CallbackHandler] implements the PKCE authorization code callback. The
// state parameter resolves the stored verifier (consumed on read), the code
// is exchanged with that verifier, and the session is persisted through the
// store. It only processes one callback to prevent replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
