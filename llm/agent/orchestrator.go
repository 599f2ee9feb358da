package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"revise/llm"
	"revise/llm/tools"
	"revise/logger"
)

// State is a node of the chat loop.
type State string

const (
	StateAgent State = "agent"
	StateTools State = "tools"
	StateDone  State = "done"
)

// DefaultMaxCycles bounds agent→tools round trips in one turn.
const DefaultMaxCycles = 10

// next is the transition function of the chat loop.
func next(s State, last *schema.Message) State {
	switch s {
	case StateAgent:
		if last != nil && len(last.ToolCalls) > 0 {
			return StateTools
		}
		return StateDone
	case StateTools:
		return StateAgent
	}
	return StateDone
}

type OrchestratorConfig struct {
	Model        model.ToolCallingChatModel
	Tools        []tool.BaseTool
	SystemPrompt string
	MaxCycles    int
	Log          *logger.Logger
}

// Orchestrator runs one chat turn: the model is called, any tool calls are
// executed, and the results are fed back until the model answers without
// tools.
type Orchestrator struct {
	model        model.BaseChatModel
	tools        *compose.ToolsNode
	systemPrompt string
	maxCycles    int
	log          *logger.Logger
}

func NewOrchestrator(ctx context.Context, cfg *OrchestratorConfig) (*Orchestrator, error) {
	if cfg == nil || cfg.Model == nil {
		return nil, fmt.Errorf("orchestrator needs a chat model")
	}
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	o := &Orchestrator{
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxCycles:    cfg.MaxCycles,
		log:          log.With("component", "orchestrator"),
	}
	if o.maxCycles <= 0 {
		o.maxCycles = DefaultMaxCycles
	}
	if len(cfg.Tools) == 0 {
		return o, nil
	}

	infos := make([]*schema.ToolInfo, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("read tool info: %w", err)
		}
		infos = append(infos, info)
	}
	bound, err := cfg.Model.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	o.model = bound

	o.tools, err = compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               cfg.Tools,
		ToolCallMiddlewares: []compose.ToolMiddleware{tools.ErrorHandler()},
	})
	if err != nil {
		return nil, fmt.Errorf("create tools node: %w", err)
	}
	return o, nil
}

// Run executes one turn over history and returns the messages it produced,
// in order. emit, when set, sees each message as soon as it exists.
func (o *Orchestrator) Run(ctx context.Context, history []*schema.Message, emit func(*schema.Message)) ([]*schema.Message, error) {
	if emit == nil {
		emit = func(*schema.Message) {}
	}
	var (
		produced []*schema.Message
		last     *schema.Message
		cycles   int
	)
	state := StateAgent
	for state != StateDone {
		switch state {
		case StateAgent:
			msg, err := o.callModel(ctx, history, produced)
			if err != nil {
				return produced, err
			}
			last = msg
			produced = append(produced, msg)
			emit(msg)

		case StateTools:
			cycles++
			if cycles > o.maxCycles {
				return produced, fmt.Errorf("chat turn stopped after %d tool rounds: %w", o.maxCycles, llm.ErrRecursionLimit)
			}
			results, err := o.tools.Invoke(ctx, last)
			if err != nil {
				return produced, fmt.Errorf("run tools: %w", err)
			}
			for _, r := range results {
				produced = append(produced, r)
				emit(r)
			}
		}
		state = next(state, last)
		if state == StateTools && o.tools == nil {
			state = StateDone
		}
	}
	o.log.Debug("turn finished", "messages", len(produced), "tool_rounds", cycles)
	return produced, nil
}

// callModel sends the system prompt followed by the conversation. Stored
// system messages are dropped so the prompt never accumulates.
func (o *Orchestrator) callModel(ctx context.Context, history, produced []*schema.Message) (*schema.Message, error) {
	msgs := make([]*schema.Message, 0, len(history)+len(produced)+1)
	if o.systemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(o.systemPrompt))
	}
	for _, m := range history {
		if m.Role != schema.System {
			msgs = append(msgs, m)
		}
	}
	msgs = append(msgs, produced...)
	out, err := o.model.Generate(ctx, msgs)
	if err != nil {
		return nil, llm.External("llm", err)
	}
	if out == nil {
		return nil, llm.External("llm", fmt.Errorf("empty response"))
	}
	return out, nil
}
