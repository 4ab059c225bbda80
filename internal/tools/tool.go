package tools

import (
	"context"
	"encoding/json"

	"github.com/linnemanlabs/smilecare/internal/catalog"
)

// Tool is a capability the doctor chat assistant can offer to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage // JSON Schema
	Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
}

// ToolDef is a tool as the model API describes it.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Binder builds a tool for one doctor's chat. ok is false when the tool
// does not apply to that doctor.
type Binder func(d catalog.Doctor) (t Tool, ok bool)

// Registry lists the tools a chat may use. Some tools are shared by every
// doctor, others are bound to the doctor the patient is talking to.
type Registry struct {
	binders []named
}

type named struct {
	name string
	bind Binder
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewClinicRegistry returns the catalog and symptom tools plus the
// consultation quote for doctors taking bookings.
func NewClinicRegistry() *Registry {
	r := NewRegistry()
	r.Register(ListDoctors{})
	r.Register(ListServices{})
	r.Register(SearchProducts{})
	r.Register(ScoreSymptoms{})
	r.Bind(quoteToolName, func(d catalog.Doctor) (Tool, bool) {
		return ConsultationQuote{Doctor: d}, d.Available
	})
	return r
}

// Register offers t in every chat.
func (r *Registry) Register(t Tool) {
	r.Bind(t.Name(), func(catalog.Doctor) (Tool, bool) { return t, true })
}

// Bind adds a doctor-scoped tool. A second binding under the same name
// replaces the first and keeps its position.
func (r *Registry) Bind(name string, b Binder) {
	for i := range r.binders {
		if r.binders[i].name == name {
			r.binders[i].bind = b
			return
		}
	}
	r.binders = append(r.binders, named{name: name, bind: b})
}

// Names lists every registered tool, scoped or not.
func (r *Registry) Names() []string {
	out := make([]string, len(r.binders))
	for i, n := range r.binders {
		out[i] = n.name
	}
	return out
}

// For returns the tools offered in a chat with d, in registration order.
func (r *Registry) For(d catalog.Doctor) *Toolset {
	ts := &Toolset{byName: make(map[string]Tool, len(r.binders))}
	for _, n := range r.binders {
		t, ok := n.bind(d)
		if !ok {
			continue
		}
		ts.tools = append(ts.tools, t)
		ts.byName[n.name] = t
	}
	return ts
}

// Toolset is the fixed set of tools for one conversation.
type Toolset struct {
	tools  []Tool
	byName map[string]Tool
}

// Get looks a tool up by name.
func (s *Toolset) Get(name string) (Tool, bool) {
	t, ok := s.byName[name]
	return t, ok
}

func (s *Toolset) Len() int { return len(s.tools) }

// Defs describes the tools for the model, in a stable order.
func (s *Toolset) Defs() []ToolDef {
	out := make([]ToolDef, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		})
	}
	return out
}
