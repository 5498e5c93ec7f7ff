// Package server provides HTTP routing, middleware and the realtime transport for the web view.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] uses
// [http.ServeMux] internally with method filtering; [Middleware] passed to the constructor or
// [BasicRouter.Use] runs in the order it was added. [Logging] and [Recover] are the stock
// middleware.
//
// # Login Callback
//
// [CallbackHandler] completes the OAuth implicit grant. Because the access token arrives in the
// URL fragment, the callback page hands it to the server with a POST to [FragmentPath] and
// clears it from the address bar. The first outcome is also delivered on [CallbackHandler.Result],
// which `auth login` waits on while its temporary server runs.
//
// # Websocket Hub
//
// [Hub] keeps the set of connected browser tabs. Each [Client] gets a read goroutine that
// decodes [Envelope] frames for a [ClientHandler] and a write goroutine that drains a buffered
// queue and keeps the connection alive with pings. [Hub.Run] must be running for clients to
// disconnect cleanly.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
