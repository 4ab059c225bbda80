package claude

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/smilecare/internal/assistant"
	"github.com/linnemanlabs/smilecare/internal/catalog"
	"github.com/linnemanlabs/smilecare/internal/tools"
)

func TestToSDKMessages_TextBlock(t *testing.T) {
	t.Parallel()

	msgs := []assistant.ModelMessage{{
		Role:    "user",
		Content: []assistant.ContentBlock{{Type: "text", Text: "hello"}},
	}}

	result := toSDKMessages(msgs)

	if len(result) != 1 {
		t.Fatalf("len = %d, want 1", len(result))
	}
	if result[0].Role != "user" {
		t.Errorf("role = %q, want %q", result[0].Role, "user")
	}
	if len(result[0].Content) != 1 {
		t.Fatalf("content len = %d, want 1", len(result[0].Content))
	}
	if result[0].Content[0].OfText == nil {
		t.Fatal("expected OfText to be set")
	}
	if result[0].Content[0].OfText.Text != "hello" {
		t.Errorf("text = %q, want %q", result[0].Content[0].OfText.Text, "hello")
	}
}

func TestToSDKMessages_ToolUseBlock(t *testing.T) {
	t.Parallel()

	msgs := []assistant.ModelMessage{{
		Role: "assistant",
		Content: []assistant.ContentBlock{{
			Type:  "tool_use",
			ID:    "tu-1",
			Name:  "search_products",
			Input: json.RawMessage(`{"query":"serum"}`),
		}},
	}}

	result := toSDKMessages(msgs)

	block := result[0].Content[0]
	if block.OfToolUse == nil {
		t.Fatal("expected OfToolUse to be set")
	}
	if block.OfToolUse.ID != "tu-1" {
		t.Errorf("ID = %q, want %q", block.OfToolUse.ID, "tu-1")
	}
	if block.OfToolUse.Name != "search_products" {
		t.Errorf("Name = %q, want %q", block.OfToolUse.Name, "search_products")
	}
}

func TestToSDKMessages_ToolResultBlock(t *testing.T) {
	t.Parallel()

	msgs := []assistant.ModelMessage{{
		Role: "user",
		Content: []assistant.ContentBlock{{
			Type:      "tool_result",
			ToolUseID: "tu-1",
			Content:   "tool error: unknown symptom id 9",
			IsError:   true,
		}},
	}}

	result := toSDKMessages(msgs)

	block := result[0].Content[0]
	if block.OfToolResult == nil {
		t.Fatal("expected OfToolResult to be set")
	}
	if block.OfToolResult.ToolUseID != "tu-1" {
		t.Errorf("ToolUseID = %q, want %q", block.OfToolResult.ToolUseID, "tu-1")
	}
	if !block.OfToolResult.IsError.Valid() || !block.OfToolResult.IsError.Value {
		t.Error("expected IsError to be true")
	}
}

func TestToSDKMessages_MixedBlocks(t *testing.T) {
	t.Parallel()

	msgs := []assistant.ModelMessage{{
		Role: "assistant",
		Content: []assistant.ContentBlock{
			{Type: "text", Text: "let me look that up"},
			{Type: "tool_use", ID: "tu-2", Name: "search_products", Input: json.RawMessage(`{}`)},
		},
	}}

	result := toSDKMessages(msgs)

	if len(result[0].Content) != 2 {
		t.Fatalf("content len = %d, want 2", len(result[0].Content))
	}
	if result[0].Content[0].OfText == nil {
		t.Error("first block should be text")
	}
	if result[0].Content[1].OfToolUse == nil {
		t.Error("second block should be tool_use")
	}
}

func TestToSDKTools(t *testing.T) {
	t.Parallel()

	defs := []tools.ToolDef{{
		Name:        "test_tool",
		Description: "a test tool",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}}}`),
	}}

	result := toSDKTools(defs)

	if len(result) != 1 {
		t.Fatalf("len = %d, want 1", len(result))
	}
	if result[0].OfTool == nil {
		t.Fatal("expected OfTool to be set")
	}
	if result[0].OfTool.Name != "test_tool" {
		t.Errorf("name = %q, want %q", result[0].OfTool.Name, "test_tool")
	}
	if !result[0].OfTool.Description.Valid() || result[0].OfTool.Description.Value != "a test tool" {
		t.Errorf("description = %v, want %q", result[0].OfTool.Description, "a test tool")
	}
}

func TestFromSDKResponse_TextContent(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "floss daily"},
		},
		StopReason: anthropic.StopReasonEndTurn,
		Usage:      anthropic.Usage{InputTokens: 100, OutputTokens: 50},
	}

	result := fromSDKResponse(msg)

	if len(result.Content) != 1 {
		t.Fatalf("content len = %d, want 1", len(result.Content))
	}
	if result.Content[0].Type != "text" {
		t.Errorf("type = %q, want %q", result.Content[0].Type, "text")
	}
	if result.Content[0].Text != "floss daily" {
		t.Errorf("text = %q, want %q", result.Content[0].Text, "floss daily")
	}
}

func TestFromSDKResponse_ToolUseContent(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{
				Type:  "tool_use",
				ID:    "tu-99",
				Name:  "search_products",
				Input: json.RawMessage(`{"query":"serum"}`),
			},
		},
		StopReason: anthropic.StopReasonToolUse,
		Usage:      anthropic.Usage{InputTokens: 200, OutputTokens: 100},
	}

	result := fromSDKResponse(msg)

	if len(result.Content) != 1 {
		t.Fatalf("content len = %d, want 1", len(result.Content))
	}
	if result.Content[0].Type != "tool_use" {
		t.Errorf("type = %q, want %q", result.Content[0].Type, "tool_use")
	}
	if result.Content[0].ID != "tu-99" {
		t.Errorf("id = %q, want %q", result.Content[0].ID, "tu-99")
	}
	if result.Content[0].Name != "search_products" {
		t.Errorf("name = %q, want %q", result.Content[0].Name, "search_products")
	}
}

func TestFromSDKResponse_StopReasons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sdk      anthropic.StopReason
		expected assistant.StopReason
	}{
		{"end_turn", anthropic.StopReasonEndTurn, assistant.StopEnd},
		{"tool_use", anthropic.StopReasonToolUse, assistant.StopToolUse},
		{"unknown", anthropic.StopReason("max_tokens"), assistant.StopReason("max_tokens")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := &anthropic.Message{
				StopReason: tt.sdk,
				Usage:      anthropic.Usage{},
			}
			result := fromSDKResponse(msg)
			if result.StopReason != tt.expected {
				t.Errorf("stop reason = %q, want %q", result.StopReason, tt.expected)
			}
		})
	}
}

func TestFromSDKResponse_Usage(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		StopReason: anthropic.StopReasonEndTurn,
		Usage:      anthropic.Usage{InputTokens: 1234, OutputTokens: 567},
	}

	result := fromSDKResponse(msg)

	if result.Usage.InputTokens != 1234 {
		t.Errorf("input tokens = %d, want 1234", result.Usage.InputTokens)
	}
	if result.Usage.OutputTokens != 567 {
		t.Errorf("output tokens = %d, want 567", result.Usage.OutputTokens)
	}
}

func TestToSDKTools_RequiredAndProperties(t *testing.T) {
	t.Parallel()

	doctor, err := catalog.DoctorByID(1)
	if err != nil {
		t.Fatal(err)
	}
	result := toSDKTools(tools.NewClinicRegistry().For(doctor).Defs())
	if len(result) != 5 {
		t.Fatalf("len = %d, want 5", len(result))
	}
	for _, tu := range result {
		if tu.OfTool.Name != "score_symptoms" {
			continue
		}
		req := tu.OfTool.InputSchema.Required
		if len(req) != 1 || req[0] != "symptom_ids" {
			t.Errorf("required = %v, want [symptom_ids]", req)
		}
		if tu.OfTool.InputSchema.Properties == nil {
			t.Error("expected properties")
		}
	}
}

func TestToSDKTools_MalformedSchema(t *testing.T) {
	t.Parallel()

	result := toSDKTools([]tools.ToolDef{{Name: "bad", InputSchema: json.RawMessage(`not json`)}})
	if len(result) != 1 || result[0].OfTool.Name != "bad" {
		t.Fatalf("result = %+v", result)
	}
	if result[0].OfTool.InputSchema.Properties != nil {
		t.Error("expected no properties for malformed schema")
	}
}

func TestNew_DefaultModel(t *testing.T) {
	t.Parallel()

	if got := New("key", "").Model(); got != DefaultModel {
		t.Errorf("Model() = %q, want %q", got, DefaultModel)
	}
	if got := New("key", "claude-x").Model(); got != "claude-x" {
		t.Errorf("Model() = %q, want claude-x", got)
	}
}

func TestSend_RoundTrip(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		gotKey = r.Header.Get("X-Api-Key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Brush twice a day."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	c := New("sk-test", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	resp, err := c.Send(context.Background(), &assistant.ModelRequest{
		MaxTokens: 256,
		System:    "be brief",
		Messages: []assistant.ModelMessage{{
			Role:    "user",
			Content: []assistant.ContentBlock{{Type: "text", Text: "how often should I brush?"}},
		}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotKey != "sk-test" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotBody["model"] != "claude-test" || gotBody["max_tokens"] != float64(256) {
		t.Errorf("request body = %v", gotBody)
	}
	if resp.StopReason != assistant.StopEnd || resp.Model != "claude-test" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Content) != 1 || resp.Content[0].Text != "Brush twice a day." {
		t.Errorf("content = %+v", resp.Content)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 5 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestSend_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	c := New("sk-test", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := c.Send(context.Background(), &assistant.ModelRequest{MaxTokens: 16})
	if err == nil || !strings.Contains(err.Error(), "claude messages") {
		t.Fatalf("err = %v, want wrapped api error", err)
	}
}
