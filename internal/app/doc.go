// Package app owns the application state.
//
// [New] constructs the session, grid, directory, scheduler and searcher around an [events.Bus]
// and subscribes the reactions that tie them together:
//   - an auth change restarts the refresh loop; logging out swaps in the demo directory
//   - add requests from search, the directory or typed input go to the grid, and validation
//     failures become notices
//
// Views report visibility and network status through [App.SetVisible] and [App.SetOnline]; the
// refresh loop runs only while some view is visible, the network is up and a user is logged in.
//
// [Open] is the production constructor: SQLite-backed stores, the Helix client, and a redis
// snapshot cache when configured. Tests call [New] with in-memory collaborators and a virtual
// clock.
package app
