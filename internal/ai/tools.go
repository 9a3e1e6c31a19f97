package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	"smeaudit/internal/chat"
)

// Scope identifies whose data a tool call may touch.
type Scope struct {
	CompanyID int
	UserID    int
}

// ToolOutput is what a tool hands back to the loop. Data is returned to the model as JSON;
// Table and Reviews are streamed to the user alongside.
type ToolOutput struct {
	Data    any
	Table   *chat.DataTable
	Reviews []chat.ReviewRequest
}

// ToolHandler executes a tool with the model-supplied JSON arguments.
type ToolHandler func(ctx context.Context, scope Scope, args json.RawMessage) (*ToolOutput, error)

// ToolDefinition describes a single tool in the registry.
// Read tools execute autonomously during the agentic loop.
// Write tools stop the loop; their handler runs only after the user confirms.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
	IsReadTool  bool
	Handler     ToolHandler
	// Summary renders a one-line description of a proposed write for the confirmation prompt.
	Summary func(args json.RawMessage) string
}

// ToolRegistry holds all tools available to the agent.
type ToolRegistry struct {
	tools map[string]ToolDefinition
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]ToolDefinition)}
}

// Register adds a tool. Registering a name twice is a programming error.
func (r *ToolRegistry) Register(t ToolDefinition) {
	if _, dup := r.tools[t.Name]; dup {
		panic("ai: duplicate tool " + t.Name)
	}
	if t.Handler == nil {
		panic("ai: tool " + t.Name + " has no handler")
	}
	r.tools[t.Name] = t
}

func (r *ToolRegistry) Get(name string) (ToolDefinition, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns the tools sorted by name.
func (r *ToolRegistry) All() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs a tool by name. It is used both inside the loop for read tools and
// by the confirm endpoint for write tools.
func (r *ToolRegistry) Execute(ctx context.Context, scope Scope, name string, args json.RawMessage) (*ToolOutput, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return t.Handler(ctx, scope, args)
}

// ToOpenAITools converts the registry to the Responses API tool format.
// Both read and write tools are included; the distinction is enforced in the loop.
func (r *ToolRegistry) ToOpenAITools() []responses.ToolUnionParam {
	all := r.All()
	out := make([]responses.ToolUnionParam, 0, len(all))
	for _, t := range all {
		out = append(out, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

// SchemaFor reflects the JSON schema of T's fields for use as tool parameters.
func SchemaFor[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	b, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("ai: marshal schema for %T: %v", v, err))
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(fmt.Sprintf("ai: unmarshal schema for %T: %v", v, err))
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}
