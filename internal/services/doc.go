// Package services implements the [TwitchAPI] client used by the directory, search and session.
//
// # Helix Client
//
// [HelixClient] talks to the Twitch Helix REST API. Every request carries a bearer token,
// injected by an [oauth2.Transport] over a static token source, and the application's
// Client-Id header. Requests share a [rate.Limiter] so bursts from paging do not trip
// Helix's per-client budget.
//
// # Pagination
//
// Helix list endpoints return a cursor in pagination.cursor; [CollectPages] follows it until
// it is empty or the context is cancelled. [Chunk] splits id lists into batches of [MaxBatch].
//
// # Error Handling
//
// Status codes map onto sentinel errors from the shared package:
//   - [shared.ErrUnauthorized] : 401/403, the stored credential must be discarded
//   - [shared.ErrRateLimited] : 429
//   - [shared.ErrAPIRequest] : other failures
//
// Context cancellation is returned unwrapped so callers can tell a superseded fetch from a
// failed one.
package services
