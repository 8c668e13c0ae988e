package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type lookupInput struct {
	Symbol string `json:"symbol" jsonschema_description:"Stock symbol"`
}

type mockCallable struct {
	name   string
	output string
	err    error
}

func (t *mockCallable) Name() string               { return t.name }
func (t *mockCallable) Description() string        { return "mock callable " + t.name }
func (t *mockCallable) Parameters() map[string]any { return SchemaFor[lookupInput]() }

func (t *mockCallable) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	if t.err != nil {
		return nil, t.err
	}
	return &Result{Success: true, Output: t.output}, nil
}

type mockTerminal struct{ name string }

func (t *mockTerminal) Name() string               { return t.name }
func (t *mockTerminal) Description() string        { return "finish" }
func (t *mockTerminal) Parameters() map[string]any { return SchemaFor[lookupInput]() }
func (t *mockTerminal) Terminal()                  {}

type mockBoth struct{ mockCallable }

func (t *mockBoth) Terminal() {}

type mockInert struct{}

func (mockInert) Name() string               { return "inert" }
func (mockInert) Description() string        { return "" }
func (mockInert) Parameters() map[string]any { return nil }

func sealedRegistry(t *testing.T, tools ...Tool) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, tl := range tools {
		if err := r.Register(tl); err != nil {
			t.Fatalf("Failed to register %s: %v", tl.Name(), err)
		}
	}
	if err := r.Seal(); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	return r
}

func TestRegistry_Seal_ExactlyOneTerminal(t *testing.T) {
	r := sealedRegistry(t, &mockCallable{name: "lookup"}, &mockTerminal{name: "answer"})

	if r.Terminal() == nil || r.Terminal().Name() != "answer" {
		t.Fatalf("Expected terminal tool 'answer', got %v", r.Terminal())
	}
	if !r.IsTerminal("answer") || r.IsTerminal("lookup") {
		t.Error("IsTerminal disagrees with the registered terminal")
	}
	if err := r.Register(&mockCallable{name: "late"}); !errors.Is(err, ErrSealed) {
		t.Errorf("Expected ErrSealed after Seal, got %v", err)
	}
}

func TestRegistry_Seal_Rejects(t *testing.T) {
	cases := map[string][]Tool{
		"no terminal":     {&mockCallable{name: "lookup"}},
		"two terminals":   {&mockTerminal{name: "a"}, &mockTerminal{name: "b"}},
		"both variants":   {&mockBoth{mockCallable{name: "both"}}, &mockTerminal{name: "answer"}},
		"neither variant": {mockInert{}, &mockTerminal{name: "answer"}},
	}
	for name, tools := range cases {
		r := NewRegistry()
		for _, tl := range tools {
			if err := r.Register(tl); err != nil {
				t.Fatalf("%s: register: %v", name, err)
			}
		}
		if err := r.Seal(); err == nil {
			t.Errorf("%s: expected Seal to fail", name)
		}
		if r.Sealed() {
			t.Errorf("%s: registry should stay unsealed after a failed Seal", name)
		}
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&mockCallable{name: "lookup"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockCallable{name: "lookup"}); err == nil {
		t.Fatal("Expected duplicate registration to fail")
	}
}

func TestRegistry_ListSortedAndDefinitions(t *testing.T) {
	r := sealedRegistry(t,
		&mockCallable{name: "zeta"},
		&mockTerminal{name: "answer"},
		&mockCallable{name: "alpha"},
	)

	var names []string
	for _, tl := range r.List() {
		names = append(names, tl.Name())
	}
	if strings.Join(names, ",") != "alpha,answer,zeta" {
		t.Errorf("Expected sorted names, got %v", names)
	}

	defs := r.Definitions()
	if len(defs) != 3 || defs[0].Function.Name != "alpha" || defs[0].Type != "function" {
		t.Errorf("Unexpected definitions: %+v", defs[0])
	}
	if len(r.Callables()) != 2 {
		t.Errorf("Expected 2 callables, got %d", len(r.Callables()))
	}
}

func TestRegistry_Get_Unknown(t *testing.T) {
	r := sealedRegistry(t, &mockTerminal{name: "answer"})
	if _, err := r.Get("missing"); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("Expected ErrUnknownTool, got %v", err)
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := sealedRegistry(t, &mockCallable{name: "lookup"}, &mockTerminal{name: "answer"})

	if err := r.Validate("lookup", json.RawMessage(`{"symbol":"AAPL"}`)); err != nil {
		t.Errorf("Valid arguments rejected: %v", err)
	}
	if err := r.Validate("lookup", json.RawMessage(`{}`)); err == nil {
		t.Error("Missing required field should fail validation")
	}
	if err := r.Validate("lookup", json.RawMessage(`{"symbol":42}`)); err == nil {
		t.Error("Wrong type should fail validation")
	}
	if err := r.Validate("lookup", json.RawMessage(`{"symbol":"AAPL","extra":1}`)); err == nil {
		t.Error("Unknown property should fail validation")
	}
	if err := r.Validate("lookup", json.RawMessage(`{not json`)); err == nil {
		t.Error("Malformed JSON should fail validation")
	}
	if err := r.Validate("missing", json.RawMessage(`{}`)); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("Expected ErrUnknownTool, got %v", err)
	}
}

func TestRegistry_Validate_RequiresSeal(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockCallable{name: "lookup"})
	if err := r.Validate("lookup", json.RawMessage(`{"symbol":"AAPL"}`)); !errors.Is(err, ErrNotSealed) {
		t.Errorf("Expected ErrNotSealed, got %v", err)
	}
}

func TestSchemaFor_RequiredFields(t *testing.T) {
	schema := SchemaFor[lookupInput]()

	if _, ok := schema["$schema"]; ok {
		t.Error("$schema key should be stripped")
	}
	if schema["type"] != "object" {
		t.Errorf("Expected object schema, got %v", schema["type"])
	}
	required, _ := schema["required"].([]any)
	if len(required) != 1 || required[0] != "symbol" {
		t.Errorf("Expected symbol to be required, got %v", schema["required"])
	}
	props := schema["properties"].(map[string]any)
	symbol := props["symbol"].(map[string]any)
	if symbol["description"] != "Stock symbol" {
		t.Errorf("Expected description from struct tag, got %v", symbol["description"])
	}
}
