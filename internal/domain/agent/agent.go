// Package agent defines the specialized agents the chat pipeline dispatches
// to, and the registry that holds them.
package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/janhq/reno-server/internal/domain/conversation"
)

// Agent names used in the registry and in suggested-action metadata.
const (
	NameCost    = "cost_estimator"
	NameProduct = "product_matcher"
	NameDIY     = "diy_guide"
	NameDesign  = "design"
)

// Status is the outcome of one agent invocation.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusNeedsInput Status = "needs_input"
	StatusError      Status = "error"
)

// Request is the input handed to an agent. Fields holds the loosely typed
// parameters collected from the message, the action context and the home.
type Request struct {
	ConversationID string
	UserID         *string
	HomeID         *string
	Message        string
	Region         string
	ContextText    string
	Fields         map[string]any
}

// Field returns Fields[name] as a string, or "".
func (r Request) Field(name string) string {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// WithField returns a copy of r with name set, unless it already has a value.
func (r Request) WithField(name string, value any) Request {
	if r.Field(name) != "" {
		return r
	}
	fields := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		fields[k] = v
	}
	fields[name] = value
	r.Fields = fields
	return r
}

// Result is what an agent reports back. Agents never return Go errors: a
// missing field is StatusNeedsInput and any other failure is StatusError.
type Result struct {
	Agent         string                       `json:"agent"`
	Status        Status                       `json:"status"`
	Kind          conversation.AgentResultKind `json:"kind,omitempty"`
	Data          any                          `json:"data,omitempty"`
	Error         string                       `json:"error,omitempty"`
	MissingFields []string                     `json:"missing_fields,omitempty"`
	FollowUps     []string                     `json:"follow_ups,omitempty"`
	// ScopeFallback is set when the scope analysis could not be parsed and
	// the safe default scope was used.
	ScopeFallback bool `json:"scope_fallback,omitempty"`
}

// OK reports whether the agent produced data.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Success builds a successful result.
func Success(agent string, kind conversation.AgentResultKind, data any) Result {
	return Result{Agent: agent, Status: StatusSuccess, Kind: kind, Data: data}
}

// NeedsInput builds a clarification result. At most two follow-ups are kept.
func NeedsInput(agent string, missing []string, followUps ...string) Result {
	if len(followUps) > 2 {
		followUps = followUps[:2]
	}
	return Result{Agent: agent, Status: StatusNeedsInput, MissingFields: missing, FollowUps: followUps}
}

// Failure builds an error result.
func Failure(agent string, err error) Result {
	return Result{Agent: agent, Status: StatusError, Error: err.Error()}
}

// AgentResult converts a successful result into turn metadata.
func (r Result) AgentResult() (*conversation.AgentResult, error) {
	if !r.OK() {
		return nil, fmt.Errorf("agent %s did not succeed: %s", r.Agent, r.Status)
	}
	return conversation.NewAgentResult(r.Kind, r.Data)
}

// Agent is a specialized reasoning agent.
type Agent interface {
	// Name returns the registry key.
	Name() string
	// Process handles one request. It must not panic or block past ctx.
	Process(ctx context.Context, req Request) Result
}

// Registry holds agents by name.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates a registry with the given agents.
func NewRegistry(agents ...Agent) *Registry {
	r := &Registry{agents: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		_ = r.Register(a)
	}
	return r
}

// Register adds an agent. Names must be unique.
func (r *Registry) Register(a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[a.Name()]; exists {
		return fmt.Errorf("agent %s already registered", a.Name())
	}
	r.agents[a.Name()] = a
	return nil
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Names lists registered agents in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
