// Package xerrors implements the coordinator's error taxonomy (§7):
// which failures abort the process and which are logged and
// tolerated. Callers distinguish the two with errors.As against Fatal.
package xerrors

import "fmt"

// Kind classifies a coordinator error.
type Kind int

const (
	// Configuration covers an unparseable config or scene script.
	Configuration Kind = iota
	// Connect covers a worker that failed to establish a connection.
	Connect
	// Transport covers an I/O failure or short write on an established connection.
	Transport
	// Protocol covers a malformed or unexpected message; logged, never fatal on its own.
	Protocol
	// Invariant covers a state the engine believes is impossible to reach.
	Invariant
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Connect:
		return "connect"
	case Transport:
		return "transport"
	case Protocol:
		return "protocol"
	case Invariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Fatal is a Kind of error that the reference implementation aborts
// the process for: configuration, connect, transport and invariant
// errors. Protocol problems are reported as a non-Fatal
// *ProtocolViolation instead — see NewProtocolViolation.
type Fatal struct {
	Kind Kind
	Err  error
}

func (e *Fatal) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Fatal) Unwrap() error {
	return e.Err
}

// NewFatal wraps err as a fatal error of the given kind. kind must not
// be Protocol; use NewProtocolViolation for those.
func NewFatal(kind Kind, err error) *Fatal {
	return &Fatal{Kind: kind, Err: err}
}

// ProtocolViolation is a non-fatal error: an unexpected message kind,
// an OK received in an unexpected state, or a malformed body. Callers
// log it and continue (§7); it never satisfies errors.As(*Fatal).
type ProtocolViolation struct {
	WorkerID uint32
	Detail   string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation from worker %d: %s", e.WorkerID, e.Detail)
}

// NewProtocolViolation constructs a ProtocolViolation.
func NewProtocolViolation(workerID uint32, detail string) *ProtocolViolation {
	return &ProtocolViolation{WorkerID: workerID, Detail: detail}
}
