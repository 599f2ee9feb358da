package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"revise/logger"
	"revise/pubsub"
)

// Runtime owns the conversation and fans every message out to subscribers.
type Runtime struct {
	orchestrator *Orchestrator
	store        ConversationStore
	broker       *pubsub.Broker[*schema.Message]
	log          *logger.Logger
	ctx          context.Context
	cancelFunc   context.CancelFunc

	// Persist, when set, receives the transcript after every turn.
	Persist func(ctx context.Context, transcript []*schema.Message) error
}

func NewRuntime(ctx context.Context, o *Orchestrator, store ConversationStore, log *logger.Logger) *Runtime {
	if store == nil {
		store = NewMemoryStore()
	}
	childCtx, cancel := context.WithCancel(ctx)
	return &Runtime{
		orchestrator: o,
		store:        store,
		broker:       pubsub.NewBroker[*schema.Message](),
		log:          log.With("component", "runtime"),
		ctx:          childCtx,
		cancelFunc:   cancel,
	}
}

// Run handles one user message. Subscribers see the user message, every
// assistant and tool message, then a FinishedEvent carrying the last
// assistant message. A failed turn ends with a FailedEvent instead.
func (r *Runtime) Run(userPrompt string) error {
	userMsg := schema.UserMessage(userPrompt)
	if err := r.store.Add(r.ctx, userMsg); err != nil {
		return fmt.Errorf("store user message: %w", err)
	}
	r.broker.Publish(pubsub.CreatedEvent, userMsg)

	history, err := r.store.List(r.ctx)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	produced, err := r.orchestrator.Run(r.ctx, history, func(m *schema.Message) {
		if addErr := r.store.Add(r.ctx, m); addErr != nil {
			r.log.Warn("store message failed", "error", addErr)
		}
		r.broker.Publish(pubsub.CreatedEvent, m)
		for _, tc := range m.ToolCalls {
			r.broker.Publish(pubsub.UpdatedEvent, &schema.Message{
				Role:    schema.System,
				Content: "calling tool: " + tc.Function.Name,
			})
		}
	})
	if err != nil {
		r.log.Error("chat turn failed", "error", err)
		r.broker.Publish(pubsub.FailedEvent, &schema.Message{Role: schema.System, Content: "Error: " + err.Error()})
		return err
	}

	if r.Persist != nil {
		transcript, _ := r.store.List(r.ctx)
		if err := r.Persist(r.ctx, transcript); err != nil {
			r.log.Warn("persist transcript failed", "error", err)
		}
	}
	var final *schema.Message
	if len(produced) > 0 {
		final = produced[len(produced)-1]
	}
	r.broker.Publish(pubsub.FinishedEvent, final)
	return nil
}

func (r *Runtime) Broker() *pubsub.Broker[*schema.Message] {
	return r.broker
}

func (r *Runtime) Store() ConversationStore {
	return r.store
}

// Reset drops the conversation.
func (r *Runtime) Reset() error {
	return r.store.Clear(r.ctx)
}

func (r *Runtime) Close() {
	r.cancelFunc()
	r.broker.Shutdown()
}
