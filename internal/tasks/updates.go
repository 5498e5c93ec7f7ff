package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a directory fetch.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchFollows Phase = iota
	FetchLive
	FetchUsers
	Assemble
	SearchChannels
)

func (p Phase) String() string {
	switch p {
	case FetchFollows:
		return "fetch_follows"
	case FetchLive:
		return "fetch_live"
	case FetchUsers:
		return "fetch_users"
	case Assemble:
		return "assemble"
	case SearchChannels:
		return "search_channels"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchFollowsUpdate(page, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFollows,
		Step:    page,
		Total:   page,
		Message: fmt.Sprintf("Fetching followed channels (page %d, %d so far)...", page, count),
	}
}

func fetchLiveUpdate(page, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLive,
		Step:    page,
		Total:   page,
		Message: fmt.Sprintf("Fetching live streams (page %d, %d live)...", page, count),
	}
}

func fetchUsersUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchUsers,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up channel profiles...", step, total),
	}
}

func assembleUpdate(live, offline int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Assemble,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d live, %d offline", live, offline),
		Data:    [2]int{live, offline},
	}
}

func searchUpdate(query string, results int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchChannels,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d channels for %q", results, query),
	}
}
