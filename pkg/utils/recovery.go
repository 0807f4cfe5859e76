package utils

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError is a recovered panic turned into an error.
type PanicError struct {
	Op    string
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("panic: %v", e.Value)
	}
	return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
}

func newPanicError(op string, v any) *PanicError {
	pe := &PanicError{Op: op, Value: v, Stack: string(debug.Stack())}
	slog.Error("Recovered from panic", "op", op, "panic", v, "stack", pe.Stack)
	return pe
}

// Recover stores a recovered panic in *errPtr. Use it deferred in functions
// with a named error result:
//
//	func embedBatch() (err error) {
//	    defer utils.Recover("embed batch", &err)
//	    ...
//	}
func Recover(op string, errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = newPanicError(op, r)
	}
}

// SafeGo runs fn on a new goroutine. A panic is logged and, when onPanic is
// set, reported to it.
func SafeGo(fn func(), onPanic func(error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err := newPanicError("goroutine", r)
				if onPanic != nil {
					onPanic(err)
				}
			}
		}()
		fn()
	}()
}
