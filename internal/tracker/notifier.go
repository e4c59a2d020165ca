package tracker

import (
	"context"

	"rvolkov/toritracker/internal/fetcher"
)

// Notifier receives the output of tracker ticks. Implemented by the
// presentation layer (or a queue feeding it); the tracker only reports deltas.
type Notifier interface {
	// OnNewListings delivers listings that newly appeared for a tracked
	// filter. Called at most once per tick, only with a non-empty set.
	OnNewListings(ctx context.Context, destination string, spec fetcher.FilterSpec, listings []fetcher.Listing) error

	// OnTrackerExpired delivers the single end-of-lifetime notice for a job.
	OnTrackerExpired(ctx context.Context, destination string, spec fetcher.FilterSpec) error
}
