package yemot

import (
	"errors"
	"fmt"
	"time"
)

// EndKind discriminates the control-flow signals that end a call handler.
type EndKind int

const (
	// EndHangup - the caller disconnected, or playback finished and the
	// platform left the extension.
	EndHangup EndKind = iota
	// EndTimeout - no follow-up request arrived within the configured wait.
	EndTimeout
	// EndExit - the handler navigated away explicitly.
	EndExit
)

func (k EndKind) String() string {
	switch k {
	case EndHangup:
		return "hangup"
	case EndTimeout:
		return "timeout"
	case EndExit:
		return "exit"
	default:
		return "unknown"
	}
}

// EndError signals that a call flow is over. It is not a defect: handlers
// are expected to return it up the stack untouched so the router can
// release the call. Kind tells the router which terminal outcome applies.
type EndError struct {
	Kind   EndKind
	CallID string
	// Op is the call operation that raised the signal, e.g. "read" or
	// "go_to_folder".
	Op string
	// Target holds the navigation target for EndExit signals.
	Target string
	// Timeout holds the effective wait duration for EndTimeout signals.
	Timeout time.Duration
}

func (e *EndError) Error() string {
	switch e.Kind {
	case EndExit:
		return fmt.Sprintf("yemot: call %s exited via %s to %q", e.CallID, e.Op, e.Target)
	case EndTimeout:
		return fmt.Sprintf("yemot: call %s timed out after %s waiting for the next request", e.CallID, e.Timeout)
	default:
		return fmt.Sprintf("yemot: call %s hung up during %s", e.CallID, e.Op)
	}
}

// AsEnd unwraps err into an *EndError if it is one.
func AsEnd(err error) (*EndError, bool) {
	var end *EndError
	if errors.As(err, &end) {
		return end, true
	}
	return nil, false
}

// IsHangup reports whether err is a caller-hangup signal.
func IsHangup(err error) bool {
	end, ok := AsEnd(err)
	return ok && end.Kind == EndHangup
}

// IsTimeout reports whether err is a resume-timeout signal.
func IsTimeout(err error) bool {
	end, ok := AsEnd(err)
	return ok && end.Kind == EndTimeout
}

// IsExit reports whether err is an explicit-navigation signal.
func IsExit(err error) bool {
	end, ok := AsEnd(err)
	return ok && end.Kind == EndExit
}

// EncodingError reports malformed message or read-option input. Unlike
// EndError it is an ordinary failure the handler may catch and recover
// from; it always indicates a programming error in the call flow.
type EncodingError struct {
	// Field names the offending message field or option.
	Field  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("yemot: cannot encode %s: %s", e.Field, e.Reason)
}

func encodingErrorf(field, format string, args ...any) *EncodingError {
	return &EncodingError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
