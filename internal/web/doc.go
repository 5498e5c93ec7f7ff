// Package web serves the multi-stream grid as a local web app.
//
// Routes
//
//	GET  /              → grid page
//	GET  /login         → redirect to the Twitch authorize URL
//	GET  /callback      → implicit-flow landing page
//	POST /auth/fragment → settle the session from the posted fragment
//	POST /logout        → forget the credential
//	GET  /ws            → realtime channel
//	GET  /healthz       → status JSON
//
// The page is a thin client. It renders whatever the server sends over the websocket and
// forwards user input back as frames; all state lives in [app.App].
//
// Each tab keeps its own [grid.Reconciler], so a grid change is sent as a patch against what
// that tab already shows and existing players are never reloaded. Drag gestures are tracked per
// tab with [grid.Drag]. Directory, auth, loading, notice and suggestion updates are broadcast to
// every tab.
//
// A tab counts as a visible view from the moment it connects until it reports otherwise or
// disconnects, which is what starts and stops the refresh loop.
package web
