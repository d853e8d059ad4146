package luavm

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// TypeMismatchError reports a value of the wrong kind. It is recoverable:
// the overload resolver uses it as a rejection signal.
type TypeMismatchError struct {
	Want  string
	Got   string
	Index int // stack position, 0 when not stack-related
}

func (e *TypeMismatchError) Error() string {
	if e.Index != 0 {
		return fmt.Sprintf("expected %s at stack index %d, got %s", e.Want, e.Index, e.Got)
	}
	return fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
}

// ArgumentCountError reports an argument count outside the arity a binding
// computed. Max < 0 means the binding has a variadic tail and no upper bound.
type ArgumentCountError struct {
	Name string
	Min  int
	Max  int
	Got  int
}

func (e *ArgumentCountError) Error() string {
	name := e.Name
	if name == "" {
		name = "function"
	}
	switch {
	case e.Max < 0:
		return fmt.Sprintf("%s expects at least %d arguments, got %d", name, e.Min, e.Got)
	case e.Min == e.Max:
		return fmt.Sprintf("%s expects %d arguments, got %d", name, e.Min, e.Got)
	}
	return fmt.Sprintf("%s expects %d to %d arguments, got %d", name, e.Min, e.Max, e.Got)
}

// NoOverloadMatchedError is raised after every overload candidate rejected
// the incoming arguments.
type NoOverloadMatchedError struct {
	Name       string
	Rejections []error
}

func (e *NoOverloadMatchedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no overload of %s matched the arguments", e.Name)
	for i, rej := range e.Rejections {
		fmt.Fprintf(&sb, "\n\tcandidate %d: %s", i+1, rej.Error())
	}
	return sb.String()
}

// VMRuntimeError carries an error raised inside the VM: a script-level
// error, a pcall failure, or a host failure translated at the call adapter
// boundary.
type VMRuntimeError struct {
	Message   string
	Traceback string
}

func (e *VMRuntimeError) Error() string {
	if e.Traceback != "" {
		return e.Message + "\n" + e.Traceback
	}
	return e.Message
}

// ReferenceStateError reports use of a reference after release, or a slot
// that no longer holds the required kind of value.
type ReferenceStateError struct {
	Op     string
	Reason string
}

func (e *ReferenceStateError) Error() string {
	return fmt.Sprintf("reference %s: %s", e.Op, e.Reason)
}

func typeMismatch(want string, got lua.LValue, index int) error {
	return &TypeMismatchError{
		Want:  want,
		Got:   got.Type().String(),
		Index: index,
	}
}

// asRuntimeError converts a pcall failure into a *VMRuntimeError, keeping
// whatever traceback the VM produced. When the VM gives none, the message
// alone is carried rather than lost.
func asRuntimeError(err error) error {
	if err == nil {
		return nil
	}
	var ae *lua.ApiError
	if errors.As(err, &ae) {
		return &VMRuntimeError{
			Message:   ae.Object.String(),
			Traceback: ae.StackTrace,
		}
	}
	return &VMRuntimeError{
		Message: err.Error(),
	}
}

// isBindingReject tells binding failures apart from everything else. Only
// these two kinds let the overload resolver move on to the next candidate.
func isBindingReject(err error) bool {
	var tm *TypeMismatchError
	if errors.As(err, &tm) {
		return true
	}
	var ac *ArgumentCountError
	return errors.As(err, &ac)
}
