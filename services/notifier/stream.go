package notifier

import (
	"context"
	"encoding/json"
	"time"

	"rvolkov/toritracker/internal/fetcher"
	"rvolkov/toritracker/logger"
	"rvolkov/toritracker/services/publisher"
)

// Event keys the conversation layer subscribes to.
const (
	KeyNewListings    = "listings.new"
	KeyTrackerExpired = "tracker.expired"
)

// NewListingsEvent is the payload published when a tick finds new listings.
type NewListingsEvent struct {
	Destination string             `json:"destination"`
	Spec        fetcher.FilterSpec `json:"spec"`
	Listings    []fetcher.Listing  `json:"listings"`
	At          time.Time          `json:"at"`
}

// TrackerExpiredEvent is the payload published when a job reaches the end of
// its lifetime.
type TrackerExpiredEvent struct {
	Destination string             `json:"destination"`
	Spec        fetcher.FilterSpec `json:"spec"`
	At          time.Time          `json:"at"`
}

// StreamNotifier implements tracker.Notifier by publishing events for the
// (external) conversation layer to render and deliver.
type StreamNotifier struct {
	pub publisher.Publisher
	log *logger.Logger
}

// NewStreamNotifier creates a notifier on top of a publisher.
func NewStreamNotifier(pub publisher.Publisher) *StreamNotifier {
	return &StreamNotifier{
		pub: pub,
		log: logger.ForNotifier(),
	}
}

// OnNewListings implements tracker.Notifier
func (n *StreamNotifier) OnNewListings(_ context.Context, destination string, spec fetcher.FilterSpec, listings []fetcher.Listing) error {
	event := NewListingsEvent{
		Destination: destination,
		Spec:        spec,
		Listings:    listings,
		At:          time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := n.pub.Publish(KeyNewListings, data); err != nil {
		return err
	}
	n.log.Debug().
		Str("destination", destination).
		Int("count", len(listings)).
		Msg("Published new listings event")
	return nil
}

// OnTrackerExpired implements tracker.Notifier
func (n *StreamNotifier) OnTrackerExpired(_ context.Context, destination string, spec fetcher.FilterSpec) error {
	event := TrackerExpiredEvent{
		Destination: destination,
		Spec:        spec,
		At:          time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.pub.Publish(KeyTrackerExpired, data)
}
