package messaging

import (
	"time"
)

type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventStep         EventType = "step"
	EventEpisodeEnded EventType = "episode_ended"
	EventRunFinished  EventType = "run_finished"
)

// Event is one observation of a running rollout
type Event struct {
	Type      EventType
	RunID     string
	Step      int       // pool step the event belongs to
	EnvIndex  int       // -1 for events about the whole pool
	Value     float64   // finished envs for EventStep, episode return for EventEpisodeEnded
	Values    []float64 // per-env rewards for EventStep
	Timestamp time.Time
}

// Broker fans run events out to subscribers
type Broker interface {
	// Publish delivers the event to every subscriber
	Publish(ev Event) error
	// Subscribe registers a channel under id
	Subscribe(id string, ch chan<- Event) error
	// Unsubscribe removes a subscription
	Unsubscribe(id string) error
}
