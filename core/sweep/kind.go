package sweep

import (
	"context"
	"errors"
	"reflect"
)

// KindPanic is the failure kind of a recovered driver panic.
const KindPanic = "panic"

type kinder interface {
	Kind() string
}

// FailureKind names the class of err for log lines. An error in the chain
// may name itself through a Kind method; otherwise the type name of the
// innermost error is used.
func FailureKind(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	}
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	t := reflect.TypeOf(root)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch name := t.Name(); name {
	case "", "errorString", "wrapError", "joinError":
		return "Error"
	default:
		return name
	}
}

// panicError carries a recovered panic value.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	if err, ok := e.value.(error); ok {
		return err.Error()
	}
	return fmtAny(e.value)
}

func (e *panicError) Kind() string { return KindPanic }
