package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"investai/internal/agent"
	"investai/internal/config"
	"investai/internal/errmodel"
	"investai/internal/llm"
	"investai/internal/logger"
	"investai/internal/tool/builtin"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	input *agent.Input
	log   *logger.Logger
	out   *agent.Output
	err   error
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, input *agent.Input) (*agent.Output, error) {
	f.calls++
	f.input = input
	f.log = agent.LoggerFromContext(ctx)
	return f.out, f.err
}

func newTestServer(runner agent.Runner, credential CredentialCheck) *Server {
	return New(runner, credential, config.ServerConfig{Addr: ":0", AllowedOrigins: []string{"*"}}, nil)
}

func post(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not JSON: %s", rec.Body.String())
	}
	return rec, decoded
}

func TestChat_Success(t *testing.T) {
	runner := &fakeRunner{out: &agent.Output{
		FinalText:  "AAPL closed at 185.64.",
		Steps:      []builtin.Step{{Calculation: "close[0]", Reasoning: "latest bar"}},
		Messages:   []llm.Message{{Role: llm.RoleAssistant, Content: ""}},
		History:    []llm.Message{{Role: llm.RoleUser, Content: "hi"}, {Role: llm.RoleUser, Content: "price of apple?"}},
		State:      agent.StateDone,
		StopReason: agent.StopAnswer,
		Rounds:     2,
	}}
	s := newTestServer(runner, nil)

	rec, body := post(t, s, `{"message":"price of apple?","conversationHistory":[
		{"role":"system","content":"old prompt"},
		{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if runner.log == nil {
		t.Error("The request logger should travel in the run context")
	}
	if runner.input.Message != "price of apple?" {
		t.Errorf("Unexpected message: %q", runner.input.Message)
	}
	if len(runner.input.History) != 1 || runner.input.History[0].Role != llm.RoleUser {
		t.Errorf("System messages should be dropped from history, got %+v", runner.input.History)
	}

	resp := body["response"].(map[string]any)
	if resp["finalText"] != "AAPL closed at 185.64." || resp["stopReason"] != "answer" || resp["state"] != "done" {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if steps := resp["steps"].([]any); len(steps) != 1 {
		t.Errorf("Expected 1 step, got %v", steps)
	}
	if hist := body["conversationHistory"].([]any); len(hist) != 2 {
		t.Errorf("Expected 2 history messages, got %d", len(hist))
	}
}

func TestChat_PartArrayHistory(t *testing.T) {
	runner := &fakeRunner{out: &agent.Output{State: agent.StateDone, StopReason: agent.StopAnswer}}
	s := newTestServer(runner, nil)

	rec, _ := post(t, s, `{"message":"and now?","conversationHistory":[
		{"role":"user","content":[{"type":"text","text":"compare msft"},{"type":"text","text":"and aapl"}]},
		{"role":"assistant","content":[
			{"type":"tool-call","toolCallId":"c1","toolName":"stock_insights","input":{"stock":"MSFT"}},
			{"type":"tool-call","toolCallId":"c2","toolName":"stock_insights","input":{"stock":"AAPL"}}]},
		{"role":"tool","content":[
			{"type":"tool-result","toolCallId":"c1","toolName":"stock_insights","output":{"type":"json","value":{"symbol":"MSFT"}}},
			{"type":"tool-result","toolCallId":"c2","toolName":"stock_insights","output":{"type":"text","value":"no data"}}]}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	h := runner.input.History
	if len(h) != 4 {
		t.Fatalf("Expected user, assistant and two tool messages, got %d: %+v", len(h), h)
	}
	if h[0].Content != "compare msft\nand aapl" {
		t.Errorf("Text parts should be joined, got %q", h[0].Content)
	}
	if len(h[1].ToolCalls) != 2 || h[1].ToolCalls[0].Function.Arguments != `{"stock":"MSFT"}` {
		t.Errorf("Unexpected tool calls: %+v", h[1].ToolCalls)
	}
	if h[2].Role != llm.RoleTool || h[2].ToolCallID != "c1" || h[2].Content != `{"symbol":"MSFT"}` {
		t.Errorf("Unexpected first tool result: %+v", h[2])
	}
	if h[3].ToolCallID != "c2" || h[3].Content != "no data" {
		t.Errorf("Unexpected second tool result: %+v", h[3])
	}
}

func TestChat_MissingCredential(t *testing.T) {
	runner := &fakeRunner{}
	cfg := config.LLMConfig{Provider: config.ProviderOpenRouter, APIKeyEnv: "INVESTAI_TEST_UNSET_KEY"}
	s := newTestServer(runner, cfg.CheckCredential)

	rec, body := post(t, s, `{"message":"hello"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	want := "OpenRouter API key not configured. Please set INVESTAI_TEST_UNSET_KEY in your environment variables."
	if body["error"] != want {
		t.Errorf("Unexpected error: %v", body["error"])
	}
	if runner.calls != 0 {
		t.Error("No round may run without a credential")
	}
}

func TestChat_RunFailureIsGeneric(t *testing.T) {
	runner := &fakeRunner{
		out: &agent.Output{State: agent.StateFailed},
		err: errmodel.Validation("unknown_tool", `model requested unknown tool "delete_everything"`, nil),
	}
	s := newTestServer(runner, nil)

	rec, body := post(t, s, `{"message":"hello"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	if body["error"] != genericFailure {
		t.Errorf("Expected generic failure, got %v", body["error"])
	}
	if _, ok := body["response"]; ok {
		t.Error("Partial state must not be returned")
	}
}

func TestChat_BadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"message":`},
		{"missing message", `{"conversationHistory":[]}`},
		{"unknown role", `{"message":"hi","conversationHistory":[{"role":"robot","content":"x"}]}`},
		{"numeric content", `{"message":"hi","conversationHistory":[{"role":"user","content":42}]}`},
		{"misplaced result", `{"message":"hi","conversationHistory":[{"role":"user","content":[{"type":"tool-result","toolCallId":"c1","output":"x"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			rec, body := post(t, newTestServer(runner, nil), tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", rec.Code)
			}
			if body["error"] == nil {
				t.Error("Expected an error message")
			}
			if runner.calls != 0 {
				t.Error("Runner should not be called for a bad body")
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeRunner{}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
}
