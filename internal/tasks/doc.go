// Package tasks keeps the followed-channel directory current and runs channel search.
//
// # Follow Directory
//
// [Directory.Fetch] pages the followed channels and followed live streams of the current
// user, looks up profiles for both in batches of 100, and assembles one list in which live
// channels carry stream details and offline channels read "Offline" with zero viewers.
// [Directory.Refresh] wraps it for callers:
//   - at most one fetch is in flight; a new refresh cancels the previous one
//   - a superseded or cancelled fetch applies nothing and is not logged
//   - other failures are logged and fall back to the demo dataset so views are never empty
//   - 401/403 invalidates the session
//
// Ordering happens at view time in [SortChannels]. [Directory.View] pages the offline list by
// 100; [Directory.ShowMore] reveals the next page.
//
// # Auto-Refresh
//
// [Scheduler] re-runs the refresh on a timer: immediately on Start, then every interval
// measured from the start of the previous cycle, or after the backoff when a cycle fails.
// A gate func pauses fetching while no view is visible or nobody is logged in. Time comes
// from a [shared.Clock] so tests drive the loop virtually.
//
// # Search
//
// [Searcher.Input] debounces keystrokes and publishes [events.SearchResults]. Logged-out
// users search a fixed demo list.
//
// # Progress Reporting
//
// Fetches emit [ProgressUpdate] values on an optional channel set with
// [Directory.SetProgress]. Sends use select with default so reporting never blocks.
package tasks
