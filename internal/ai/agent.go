package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"smeaudit/internal/chat"
	"smeaudit/internal/core"
)

// ErrTooManyRounds is returned when the model keeps calling tools past the round limit.
var ErrTooManyRounds = errors.New("assistant exceeded the tool call limit")

const systemPrompt = `You are an audit assistant for an Indian small business.
You help accountants review bank, GST, purchase order, discount, inventory, receivable and
vendor balance reconciliations. Amounts are in INR.
Rules:
1. Use the read tools to look up data before answering; never invent figures.
2. When the user asks for a change, call the matching write tool once. The user will be asked
   to confirm it, so do not claim the change is done.
3. Quote GSTINs, invoice numbers and amounts exactly as the tools return them.
4. Keep answers short and point to records that need a human decision.`

// Turn is one user message together with the context the model needs.
type Turn struct {
	Scope       Scope
	History     []core.ChatMessage
	Message     string
	Attachments []string
}

// ProposedAction is a write tool call held back for the user's confirmation.
type ProposedAction struct {
	ToolName string
	Args     json.RawMessage
	Summary  string
}

// Outcome is the end state of one turn: the assistant's text and, when the model asked for
// a write, the action awaiting confirmation.
type Outcome struct {
	Text    string
	Pending *ProposedAction
}

type Agent struct {
	client    openai.Client
	model     string
	maxRounds int
	logger    *zap.Logger
}

// NewAgent builds an agent. opts are passed to the OpenAI client after the API key.
func NewAgent(apiKey, model string, maxRounds int, logger *zap.Logger, opts ...option.RequestOption) *Agent {
	if maxRounds <= 0 {
		maxRounds = 6
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Agent{client: client, model: model, maxRounds: maxRounds, logger: logger}
}

// Run drives the tool loop for one turn. Read tools run immediately and their calls and
// results are emitted; the first write tool ends the loop with a ProposedAction.
func (a *Agent) Run(ctx context.Context, tools *ToolRegistry, turn Turn, emit func(chat.Event)) (*Outcome, error) {
	input := historyInput(turn)

	for round := 0; round < a.maxRounds; round++ {
		resp, err := a.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:        shared.ResponsesModel(a.model),
			Instructions: openai.String(systemPrompt),
			Input:        responses.ResponseNewParamsInputUnion{OfInputItemList: input},
			Tools:        tools.ToOpenAITools(),
		})
		if err != nil {
			return nil, fmt.Errorf("openai responses error: %w", err)
		}

		var calls []responses.ResponseFunctionToolCall
		for _, item := range resp.Output {
			if item.Type == "function_call" {
				calls = append(calls, item.AsFunctionCall())
			}
		}
		if len(calls) == 0 {
			text := resp.OutputText()
			if text != "" {
				emit(chat.ContentEvent(text))
			}
			return &Outcome{Text: text}, nil
		}

		for _, call := range calls {
			args := json.RawMessage(call.Arguments)
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			emit(chat.Event{Type: chat.EventToolCall, ToolCall: &chat.ToolCall{ID: call.CallID, Name: call.Name, Args: args}})

			def, ok := tools.Get(call.Name)
			if ok && !def.IsReadTool {
				text := resp.OutputText()
				if text != "" {
					emit(chat.ContentEvent(text))
				}
				return &Outcome{Text: text, Pending: propose(def, args)}, nil
			}

			output := a.runReadTool(ctx, tools, turn.Scope, call, args, emit)
			input = append(input,
				responses.ResponseInputItemParamOfFunctionCall(call.Arguments, call.CallID, call.Name),
				responses.ResponseInputItemParamOfFunctionCallOutput(call.CallID, output),
			)
		}
	}
	return nil, ErrTooManyRounds
}

// runReadTool executes one read tool and returns the JSON handed back to the model.
// Tool errors are reported to the model rather than ending the turn.
func (a *Agent) runReadTool(ctx context.Context, tools *ToolRegistry, scope Scope, call responses.ResponseFunctionToolCall, args json.RawMessage, emit func(chat.Event)) string {
	result := &chat.ToolResult{ID: call.CallID, Name: call.Name}

	out, err := tools.Execute(ctx, scope, call.Name, args)
	if err != nil {
		a.logger.Warn("tool failed", zap.String("tool", call.Name), zap.Error(err))
		result.Error = err.Error()
		emit(chat.Event{Type: chat.EventToolResult, ToolResult: result})
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(b)
	}

	b, err := json.Marshal(out.Data)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"error": "result could not be encoded"})
	}
	result.Result = b
	emit(chat.Event{Type: chat.EventToolResult, ToolResult: result})
	if out.Table != nil {
		emit(chat.Event{Type: chat.EventDataTable, Table: out.Table})
	}
	for i := range out.Reviews {
		emit(chat.Event{Type: chat.EventReviewRequest, Review: &out.Reviews[i]})
	}
	return string(b)
}

func propose(def ToolDefinition, args json.RawMessage) *ProposedAction {
	summary := def.Name
	if def.Summary != nil {
		summary = def.Summary(args)
	}
	return &ProposedAction{ToolName: def.Name, Args: args, Summary: summary}
}

// historyInput replays earlier messages and appends the new one.
func historyInput(turn Turn) responses.ResponseInputParam {
	input := make(responses.ResponseInputParam, 0, len(turn.History)+1)
	for _, m := range turn.History {
		role := responses.EasyInputMessageRoleUser
		if m.Role == core.RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}

	msg := turn.Message
	if len(turn.Attachments) > 0 {
		msg += "\n\nAttached documents:\n- " + strings.Join(turn.Attachments, "\n- ")
	}
	return append(input, responses.ResponseInputItemParamOfMessage(msg, responses.EasyInputMessageRoleUser))
}
