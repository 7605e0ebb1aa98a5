// Package progress fans out ingestion stage events to websocket listeners.
package progress

import (
	"context"
	"encoding/json"
	"time"
)

const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Event is one status update for an ingestion run. Stage events carry the stage
// outcome (ok, skipped, degraded, failed) in Status.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage,omitempty"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	MeetingID string    `json:"meeting_id,omitempty"`
	At        time.Time `json:"at"`
}

// Channel is the pub/sub channel for a run.
func Channel(runID string) string {
	return "run:" + runID + ":status"
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Broker is a Publisher that listeners can subscribe to. cancel must be called
// to release the subscription; the returned channel is closed afterwards.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, runID string) (msgs <-chan []byte, cancel func(), err error)
}

func encode(ev Event) ([]byte, error) {
	if ev.Type == "" {
		ev.Type = "status"
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return json.Marshal(ev)
}

type nop struct{}

// Nop drops every event.
func Nop() Publisher { return nop{} }

func (nop) Publish(context.Context, Event) error { return nil }
