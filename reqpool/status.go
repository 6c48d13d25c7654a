package reqpool

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/taikoxyz/raiko-sub002/prover"
)

// StatusKind enumerates the lifecycle states a request can be in.
// Registered/WorkInProgress are non-terminal; Success/Failed/Cancelled
// are terminal and sticky once reached, except that an explicit Cancel
// always produces Cancelled from any prior state, and an explicit Prove
// on a Failed/Cancelled key re-opens it to Registered.
type StatusKind uint8

const (
	StatusRegistered StatusKind = iota
	StatusWorkInProgress
	StatusSuccess
	StatusFailed
	StatusCancelled
)

func (k StatusKind) String() string {
	switch k {
	case StatusRegistered:
		return "registered"
	case StatusWorkInProgress:
		return "work_in_progress"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether k is one of the three terminal states.
func (k StatusKind) IsTerminal() bool {
	return k == StatusSuccess || k == StatusFailed || k == StatusCancelled
}

// Status is a sum type: Registered, WorkInProgress, Success{proof},
// Failed{error}, Cancelled. Only one of Proof/Error is ever populated,
// gated by Kind.
type Status struct {
	Kind  StatusKind
	Proof *prover.Proof
	Error string
}

func NewRegistered() Status     { return Status{Kind: StatusRegistered} }
func NewWorkInProgress() Status { return Status{Kind: StatusWorkInProgress} }
func NewSuccess(p *prover.Proof) Status {
	return Status{Kind: StatusSuccess, Proof: p}
}
func NewFailed(err string) Status { return Status{Kind: StatusFailed, Error: err} }
func NewCancelled() Status        { return Status{Kind: StatusCancelled} }

func (s Status) IsTerminal() bool { return s.Kind.IsTerminal() }

func (s Status) String() string {
	switch s.Kind {
	case StatusSuccess:
		return fmt.Sprintf("success(proof=%x)", s.Proof.Proof)
	case StatusFailed:
		return fmt.Sprintf("failed(%s)", s.Error)
	default:
		return s.Kind.String()
	}
}

// StatusWithContext pairs a Status with the timestamp of the transition
// that produced it. The pool stores only the latest, no history.
type StatusWithContext struct {
	Status    Status
	Timestamp time.Time
}

// NewStatusWithContext is a constructor for status, since callers should not
// depend on how "now" is computed.
func NewStatusWithContext(status Status, now time.Time) StatusWithContext {
	return StatusWithContext{Status: status, Timestamp: now}
}

func (s StatusWithContext) String() string {
	return fmt.Sprintf("%s @ %s", s.Status, s.Timestamp.Format(time.RFC3339))
}

// jsonStatus mirrors Status for stable, prover.Proof-transparent JSON
// encoding in the pool's persisted form.
type jsonStatus struct {
	Kind  string        `json:"kind"`
	Proof *prover.Proof `json:"proof,omitempty"`
	Error string        `json:"error,omitempty"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonStatus{Kind: s.Kind.String(), Proof: s.Proof, Error: s.Error})
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var js jsonStatus
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	switch js.Kind {
	case "registered":
		s.Kind = StatusRegistered
	case "work_in_progress":
		s.Kind = StatusWorkInProgress
	case "success":
		s.Kind = StatusSuccess
	case "failed":
		s.Kind = StatusFailed
	case "cancelled":
		s.Kind = StatusCancelled
	default:
		return fmt.Errorf("reqpool: unknown status kind %q", js.Kind)
	}
	s.Proof = js.Proof
	s.Error = js.Error
	return nil
}
