package nodegraph

import (
	"errors"
	"fmt"
)

// Structural errors. Mutations that fail leave the graph unchanged and
// return one of these, wrapped with context.
var (
	ErrUnknownClass      = errors.New("unknown class")
	ErrDuplicateClass    = errors.New("class already registered")
	ErrInvalidClass      = errors.New("invalid class descriptor")
	ErrUnknownNode       = errors.New("unknown node")
	ErrUnknownPin        = errors.New("unknown pin")
	ErrUnknownLink       = errors.New("unknown link")
	ErrUnknownProperty   = errors.New("unknown property")
	ErrUnknownAsset      = errors.New("unknown asset")
	ErrDuplicateName     = errors.New("duplicate name")
	ErrInvalidName       = errors.New("invalid name")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrSameNode          = errors.New("pins belong to the same node")
	ErrDirection         = errors.New("link must join an output to an input")
	ErrIncompatibleTypes = errors.New("incompatible pin types")
	ErrInputOccupied     = errors.New("input pin already linked")
	ErrFlowOccupied      = errors.New("flow output already linked")
	ErrNotPropertyPin    = errors.New("pin does not accept properties")
	ErrUnboundAsset      = errors.New("property has no asset")
	ErrNoLoader          = errors.New("asset class has no loader")
	ErrCorrupt           = errors.New("graph integrity violated")
)

// ErrorKind classifies a per-evaluation failure.
type ErrorKind int

const (
	InvalidNode ErrorKind = iota + 1
	MissingInput
	MissingOutput
	MaterialError
	EvaluationError
	InfiniteLoop
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidNode:
		return "invalidNode"
	case MissingInput:
		return "missingInput"
	case MissingOutput:
		return "missingOutput"
	case MaterialError:
		return "materialError"
	case EvaluationError:
		return "evaluationError"
	case InfiniteLoop:
		return "infiniteLoop"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k ErrorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// EvalError is one entry of an evaluator's error list. Evaluation failures
// are recorded, never returned across the engine boundary.
type EvalError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	NodeID  ID        `json:"node,omitempty"`
	PinID   ID        `json:"pin,omitempty"`
	Err     error     `json:"-"`
}

func (e *EvalError) Error() string {
	msg := e.Kind.String()
	if e.NodeID != NoID {
		msg += fmt.Sprintf(": node %d", e.NodeID)
	}
	if e.PinID != NoID {
		msg += fmt.Sprintf(" pin %d", e.PinID)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EvalError) Unwrap() error { return e.Err }

// Errorf builds an EvalError of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
