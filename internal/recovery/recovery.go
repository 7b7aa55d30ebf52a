// Package recovery turns panics raised by user-supplied operations into
// ordinary errors so that delay loops never die with the operation.
package recovery

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
)

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// NilError replaces a non-nil error interface holding a nil pointer, map,
// slice, func or chan. Calling Error on such a value usually panics.
type NilError struct {
	Type string
}

func (e *NilError) Error() string {
	return fmt.Sprintf("operation returned a nil %s as error", e.Type)
}

// Call runs fn and converts a panic into a *PanicError and a typed nil error
// into a *NilError. Callers can format whatever Call returns.
func Call(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return Normalize(fn(ctx))
}

// Normalize returns err unless it is a typed nil, which becomes a *NilError.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	v := reflect.ValueOf(err)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return &NilError{Type: fmt.Sprintf("%T", err)}
		}
	}
	return err
}
