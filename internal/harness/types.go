package harness

// TraceEvent is one command and its reply.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Phase   string         `json:"phase"` // "setup" or "step"
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
	Status  string         `json:"status"`
	Result  any            `json:"result,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Trace phases.
const (
	PhaseSetup = "setup"
	PhaseStep  = "step"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every command sent, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends e to the trace.
func (r *Result) AddEvent(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
