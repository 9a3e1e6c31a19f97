package ai

import (
	"context"
	"encoding/json"
	"testing"
)

type sampleArgs struct {
	ID   int    `json:"id" jsonschema:"required,description=Record id"`
	Note string `json:"note,omitempty"`
}

func TestSchemaFor(t *testing.T) {
	s := SchemaFor[sampleArgs]()
	if s["type"] != "object" {
		t.Fatalf("type = %v", s["type"])
	}
	props, ok := s["properties"].(map[string]any)
	if !ok || props["id"] == nil || props["note"] == nil {
		t.Fatalf("properties = %v", s["properties"])
	}
	if _, ok := s["$schema"]; ok {
		t.Error("$schema should be stripped")
	}
	if s["additionalProperties"] != false {
		t.Errorf("additionalProperties = %v", s["additionalProperties"])
	}
}

func TestToolRegistry(t *testing.T) {
	r := NewToolRegistry()
	handler := func(ctx context.Context, scope Scope, args json.RawMessage) (*ToolOutput, error) {
		return &ToolOutput{Data: scope.CompanyID}, nil
	}
	r.Register(ToolDefinition{Name: "b_tool", IsReadTool: true, Handler: handler})
	r.Register(ToolDefinition{Name: "a_tool", Handler: handler})

	all := r.All()
	if len(all) != 2 || all[0].Name != "a_tool" {
		t.Errorf("All should be sorted by name: %+v", all)
	}
	if tools := r.ToOpenAITools(); len(tools) != 2 || tools[0].OfFunction.Name != "a_tool" {
		t.Errorf("unexpected OpenAI tools %+v", tools)
	}

	out, err := r.Execute(context.Background(), Scope{CompanyID: 3}, "b_tool", nil)
	if err != nil || out.Data != 3 {
		t.Errorf("Execute = %+v, %v", out, err)
	}
	if _, err := r.Execute(context.Background(), Scope{}, "missing", nil); err == nil {
		t.Error("expected error for unknown tool")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register(ToolDefinition{Name: "a_tool", Handler: handler})
}
