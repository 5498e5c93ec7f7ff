// Package models defines the domain records shared by the multistream components.
//
// The package contains two categories of types:
//
// 1. Owned state: records with a single writer
//   - [StreamEntry] : one user-added slot in the grid, owned by the grid controller
//   - [SessionUser] : the authenticated identity, owned by the session manager
//
// 2. Derived data: transient records replaced wholesale on every fetch
//   - [FollowedChannel] : a followed channel with live/offline status
//   - [ChannelSuggestion] : a channel search result
//
// [EntryStore] is the persistence contract for the ordered entry list.
package models
