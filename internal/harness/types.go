package harness

import "github.com/roach88/contactstore/internal/contacts"

// Step outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// CodeBackend is the trace code for errors that came from the backend rather
// than from the store.
const CodeBackend = "BACKEND"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64       `json:"seq"`
	Op      string      `json:"op"`
	Target  string      `json:"target,omitempty"` // uid or phone number
	Outcome string      `json:"outcome"`          // "ok" or "error"
	Code    string      `json:"code,omitempty"`   // store error code or BACKEND
	Value   interface{} `json:"value,omitempty"`  // key, removed flag, count or uid
	Calls   []string    `json:"calls"`            // backend calls made by this step
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Calls is every backend call made by the flow.
	Calls []string `json:"calls"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Index is the in-memory index after the flow. Nil if the store never
	// initialized.
	Index *contacts.Index `json:"index,omitempty"`

	// Persisted is the index stored at the reserved key, nil if absent.
	Persisted *contacts.Index `json:"persisted,omitempty"`

	// Dirty is the store's dirty flag after the flow.
	Dirty bool `json:"dirty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Calls:  []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
