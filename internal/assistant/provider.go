package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/linnemanlabs/smilecare/internal/tools"
)

// Provider sends one conversation turn to a chat model.
type Provider interface {
	Send(ctx context.Context, req *ModelRequest) (*ModelTurn, error)
}

// ModelRequest is the doctor persona, the conversation so far and the tools
// the doctor may use.
type ModelRequest struct {
	MaxTokens int
	System    string
	Messages  []ModelMessage
	Tools     []tools.ToolDef
}

// Role is the speaker of a model message. Patient messages and tool
// results are sent as RoleUser, the doctor speaks as RoleModel.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "assistant"
)

// BlockType tags the content of a block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// StopReason says why the model ended its turn.
type StopReason string

const (
	StopEnd     StopReason = "end_turn"
	StopToolUse StopReason = "tool_use"
)

// ModelMessage is one message of the model conversation.
type ModelMessage struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is text, a tool call or a tool result. Only the fields of
// its Type are set.
type ContentBlock struct {
	Type      BlockType       `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// ModelTurn is the model's answer to a request.
type ModelTurn struct {
	Content    []ContentBlock
	StopReason StopReason
	Usage      Usage
	Model      string
}

// Usage counts tokens for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total is input plus output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Text joins the non-blank text blocks of the turn.
func (t *ModelTurn) Text() string {
	var parts []string
	for _, b := range t.Content {
		if b.Type == BlockText && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, strings.TrimSpace(b.Text))
		}
	}
	return strings.Join(parts, "\n\n")
}

// ToolCalls returns the tool_use blocks of the turn.
func (t *ModelTurn) ToolCalls() []ContentBlock {
	var out []ContentBlock
	for _, b := range t.Content {
		if b.Type == BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

func textMessage(role Role, text string) ModelMessage {
	return ModelMessage{Role: role, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}
