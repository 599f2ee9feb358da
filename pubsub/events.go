package pubsub

import "context"

const (
	CreatedEvent  EventType = "created"
	UpdatedEvent  EventType = "updated"
	DeletedEvent  EventType = "deleted"
	FinishedEvent EventType = "finished"
	// ProgressEvent carries a pipeline step report.
	ProgressEvent EventType = "progress"
	// FailedEvent ends a run with an error payload.
	FailedEvent EventType = "failed"
)

// Subscriber hands out event channels that close with their context.
type Subscriber[T any] interface {
	Subscribe(context.Context) <-chan Event[T]
}

type (
	EventType string

	Event[T any] struct {
		Type    EventType
		Payload T
	}

	Publisher[T any] interface {
		Publish(EventType, T)
	}
)
