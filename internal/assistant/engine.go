package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/smilecare/internal/catalog"
	"github.com/linnemanlabs/smilecare/internal/tools"
)

const (
	DefaultMaxToolRounds = 6
	DefaultMaxTokens     = 30000
	ResponseTokens       = 1024

	// span attributes are capped so tool payloads stay exportable
	maxSpanBody = 4096
)

var tracer = otel.Tracer("github.com/linnemanlabs/smilecare/internal/assistant")

// EngineOptions bound a model conversation. Zero values select the defaults.
type EngineOptions struct {
	MaxToolRounds int
	MaxTokens     int
	// Fallback answers when the model fails or runs out of budget.
	// Defaults to CannedResponder.
	Fallback Responder
	Metrics  *Metrics
}

// Engine is a Responder backed by a tool-using model.
type Engine struct {
	provider  Provider
	registry  *tools.Registry
	logger    log.Logger
	maxRounds int
	maxTokens int
	fallback  Responder
	metrics   *Metrics
}

// NewEngine creates an engine over the given provider. Each reply offers the
// tools registry binds for the thread's doctor.
func NewEngine(provider Provider, registry *tools.Registry, logger log.Logger, opts EngineOptions) *Engine {
	e := &Engine{
		provider:  provider,
		registry:  registry,
		logger:    logger,
		maxRounds: opts.MaxToolRounds,
		maxTokens: opts.MaxTokens,
		fallback:  opts.Fallback,
		metrics:   opts.Metrics,
	}
	if e.maxRounds <= 0 {
		e.maxRounds = DefaultMaxToolRounds
	}
	if e.maxTokens <= 0 {
		e.maxTokens = DefaultMaxTokens
	}
	if e.fallback == nil {
		e.fallback = CannedResponder{}
	}
	return e
}

// Reply runs the model over the thread, executing tool calls until the model
// ends its turn. Any failure is answered by the fallback responder.
func (e *Engine) Reply(ctx context.Context, doctor catalog.Doctor, thread *Thread) (string, error) {
	L := e.logger.With("thread_id", thread.ID, "doctor_id", doctor.ID)

	reply, reason, err := e.converse(ctx, L, doctor, thread)
	if err == nil && reason == "" {
		return reply, nil
	}
	if err != nil {
		L.Error(ctx, err, "chat model failed, using fallback reply")
		reason = "error"
	} else {
		L.Warn(ctx, "chat model stopped early, using fallback reply", "reason", reason)
	}
	if e.metrics != nil {
		e.metrics.FallbacksTotal.WithLabelValues(reason).Inc()
	}
	return e.fallback.Reply(ctx, doctor, thread)
}

// converse returns the model's reply, or a non-empty reason when it stopped
// without one.
func (e *Engine) converse(ctx context.Context, L log.Logger, doctor catalog.Doctor, thread *Thread) (string, string, error) {
	messages := buildMessages(thread)
	if len(messages) == 0 {
		return "", "empty_thread", nil
	}
	system := buildSystemPrompt(doctor)
	toolset := e.registry.For(doctor)
	defs := toolset.Defs()

	var totalTokens, toolCalls, seq int
	for {
		if toolCalls >= e.maxRounds {
			return "", "tool_budget", nil
		}
		if totalTokens >= e.maxTokens {
			return "", "token_budget", nil
		}

		resp, err := e.call(ctx, thread.ID, seq, &ModelRequest{
			MaxTokens: ResponseTokens,
			System:    system,
			Messages:  messages,
			Tools:     defs,
		})
		seq++
		if err != nil {
			return "", "", err
		}

		totalTokens += resp.Usage.Total()
		if e.metrics != nil {
			e.metrics.TokensTotal.WithLabelValues("input").Add(float64(resp.Usage.InputTokens))
			e.metrics.TokensTotal.WithLabelValues("output").Add(float64(resp.Usage.OutputTokens))
		}
		L.Info(ctx, "llm response",
			"stop_reason", resp.StopReason,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"total_tokens", totalTokens,
		)

		messages = append(messages, ModelMessage{Role: RoleModel, Content: resp.Content})

		switch resp.StopReason {
		case StopEnd:
			text := resp.Text()
			if text == "" {
				return "", "empty_reply", nil
			}
			return text, "", nil
		case StopToolUse:
			calls := resp.ToolCalls()
			results := make([]ContentBlock, 0, len(calls))
			for _, block := range calls {
				toolCalls++
				results = append(results, e.execute(ctx, L, toolset, thread.ID, block))
			}
			messages = append(messages, ModelMessage{Role: RoleUser, Content: results})
		default:
			return "", string(resp.StopReason), nil
		}
	}
}

func (e *Engine) call(ctx context.Context, threadID string, seq int, req *ModelRequest) (*ModelTurn, error) {
	ctx, span := tracer.Start(ctx, "llm.call", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "llm.call"),
		attribute.String("smilecare.chat.thread_id", threadID),
		attribute.Int("smilecare.chat.seq", seq),
	))
	defer span.End()

	span.AddEvent("llm.request", trace.WithAttributes(
		attribute.Int("llm.request.messages", len(req.Messages)),
		attribute.Int("llm.request.tools", len(req.Tools)),
	))

	resp, err := e.provider.Send(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("llm call: %w", err)
	}

	span.SetAttributes(attribute.String("gen_ai.response.model", resp.Model))
	span.AddEvent("llm.response", trace.WithAttributes(
		attribute.String("llm.response.stop_reason", string(resp.StopReason)),
		attribute.Int("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	))
	return resp, nil
}

func (e *Engine) execute(ctx context.Context, L log.Logger, toolset *tools.Toolset, threadID string, block ContentBlock) ContentBlock {
	ctx, span := tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "tool.execute"),
		attribute.String("gen_ai.tool.name", block.Name),
		attribute.String("smilecare.chat.thread_id", threadID),
		attribute.String("smilecare.tool.input", truncate(string(block.Input))),
	))
	defer span.End()

	span.AddEvent("tool.request", trace.WithAttributes(
		attribute.String("tool.request.body", truncate(string(block.Input))),
	))

	result := ContentBlock{Type: BlockToolResult, ToolUseID: block.ID}

	tool, ok := toolset.Get(block.Name)
	if !ok {
		result.Content = fmt.Sprintf("unknown tool: %s", block.Name)
		result.IsError = true
	} else if output, err := tool.Execute(ctx, block.Input); err != nil {
		L.Warn(ctx, "tool execution failed", "tool", block.Name, "error", err)
		result.Content = fmt.Sprintf("tool error: %v", err)
		result.IsError = true
	} else {
		result.Content = string(output)
	}

	span.SetAttributes(attribute.Bool("smilecare.tool.is_error", result.IsError))
	span.AddEvent("tool.result", trace.WithAttributes(
		attribute.String("tool.result.body", truncate(result.Content)),
	))
	if result.IsError {
		span.SetStatus(codes.Error, result.Content)
	}
	if e.metrics != nil {
		e.metrics.ToolCallsTotal.WithLabelValues(block.Name, fmt.Sprint(result.IsError)).Inc()
	}
	return result
}

// buildMessages maps the thread onto provider roles. The model must open
// with a user turn, so doctor messages before the first patient message are
// left to the system prompt.
func buildMessages(thread *Thread) []ModelMessage {
	out := make([]ModelMessage, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		role := RoleUser
		if m.Sender == SenderDoctor {
			role = RoleModel
		}
		if len(out) == 0 && role != RoleUser {
			continue
		}
		out = append(out, textMessage(role, m.Text))
	}
	return out
}

func buildSystemPrompt(doctor catalog.Doctor) string {
	return fmt.Sprintf(`You are %s, a %s at the SmileCare dental and skincare clinic, chatting with a patient in the clinic app.
Your specialties: %s. You opened the conversation with: %q

Answer briefly and warmly, in plain language, in at most a few short paragraphs.
Use the tools to look up the clinic's doctors, services, prices and products instead of guessing,
and use score_symptoms when the patient describes dental symptoms so your advice matches the clinic's urgency guidance.
Never diagnose with certainty. When symptoms sound urgent, tell the patient to book an appointment or call the clinic.`,
		doctor.Name,
		strings.ToLower(doctor.Specialty),
		strings.Join(doctor.Specialties, ", "),
		doctor.Greeting,
	)
}

func truncate(s string) string {
	if len(s) <= maxSpanBody {
		return s
	}
	return s[:maxSpanBody] + "...(truncated)"
}
