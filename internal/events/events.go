// Package events provides event handling functionality
package events

import (
	"context"
	"sync"

	"github.com/hanulsoft/blogpilot/internal/db/models"
	"github.com/hanulsoft/blogpilot/internal/logger"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// EventType represents the type of job lifecycle event
type EventType string

const (
	// EventJobStarted is emitted when a posting job is accepted
	EventJobStarted EventType = "job_started"
	// EventJobProgress is emitted on every stage transition
	EventJobProgress EventType = "job_progress"
	// EventJobSucceeded is emitted when a job publishes its post
	EventJobSucceeded EventType = "job_succeeded"
	// EventJobFailed is emitted when a job fails terminally
	EventJobFailed EventType = "job_failed"
	// EventJobCancelled is emitted when a job is cancelled
	EventJobCancelled EventType = "job_cancelled"
	// EventChannelSize is the buffer size for the event channel
	EventChannelSize = 100
)

// Event represents a job lifecycle event
type Event struct {
	Type     EventType           // The type of event
	JobID    string              // The job ID
	Progress types.ProgressEvent // The stage transition that triggered the event
	PostURL  string              // The published post URL, set on success only
}

// TypeForState maps a job state transition to its event type
func TypeForState(state models.JobState) EventType {
	switch state {
	case models.StateSucceeded:
		return EventJobSucceeded
	case models.StateFailed:
		return EventJobFailed
	case models.StateCancelled:
		return EventJobCancelled
	default:
		return EventJobProgress
	}
}

// Handler is a function that handles an event
type Handler func(context.Context, Event) error

var (
	// handlers is a map of event types to their handlers
	handlers = make(map[EventType][]Handler)
	// handlersMu is a mutex for the handlers map
	handlersMu sync.RWMutex
	// eventChan is a channel for events
	eventChan = make(chan Event, EventChannelSize)
)

// Subscribe registers a handler for a specific event type
func Subscribe(eventType EventType, handler Handler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[eventType] = append(handlers[eventType], handler)
	logger.Debugf("📝 Registered handler for event type: %s", eventType)
}

// Publish sends an event to be processed. The channel is buffered and the
// send never blocks job execution: when the buffer is full the event is
// dropped with a warning.
func Publish(event Event) {
	select {
	case eventChan <- event:
		logger.Debugf("📢 Published event: %s (Job: %s)", event.Type, event.JobID)
	default:
		logger.Warnf("event buffer full, dropping event %s for job %s", event.Type, event.JobID)
	}
}

// Start starts the event processing loop
func Start(ctx context.Context) {
	go processEvents(ctx)
	logger.Info("🎯 Started event processing loop")
}

// processEvents handles events in the background
func processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 Stopping event processing loop")
			return
		case event := <-eventChan:
			handlersMu.RLock()
			eventHandlers := handlers[event.Type]
			handlersMu.RUnlock()

			for _, handler := range eventHandlers {
				go func(h Handler, e Event) {
					if err := h(ctx, e); err != nil {
						logger.Errorf("❌ Failed to handle event %s: %v", e.Type, err)
					}
				}(handler, event)
			}
		}
	}
}
