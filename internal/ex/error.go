// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

// Package ex provides stack-carrying error construction used throughout the
// pass and the CLI, so that a configuration error or an internal invariant
// violation can always be traced back to the call site that raised it.
package ex

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

const maxFrames = 32

// stackfulError wraps an error with the call stack captured at construction.
type stackfulError struct {
	msg   string
	cause error
	frame []string
}

func captureFrames() []string {
	pcs := make([]uintptr, maxFrames)
	// Skip captureFrames, the public constructor, and runtime.Callers itself.
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, fmt.Sprintf("[%d] %s:%d %s", len(out), f.File, f.Line, f.Function))
		if !more {
			break
		}
	}
	return out
}

func (e *stackfulError) Error() string {
	if e.cause != nil {
		if e.msg == "" {
			return e.cause.Error()
		}
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *stackfulError) Unwrap() error { return e.cause }

// New creates a stack-carrying error from a plain message.
func New(msg string) error {
	return &stackfulError{msg: msg, frame: captureFrames()}
}

// Newf creates a stack-carrying error from a formatted message.
func Newf(format string, args ...any) error {
	return &stackfulError{msg: fmt.Sprintf(format, args...), frame: captureFrames()}
}

// Wrap attaches a captured stack frame to an existing error without altering
// its message.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &stackfulError{cause: err, frame: captureFrames()}
}

// Wrapf wraps err with an additional formatted prefix message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &stackfulError{msg: fmt.Sprintf(format, args...), cause: err, frame: captureFrames()}
}

// Errorf is an alias of Wrapf kept for call sites that read more naturally
// as "errorf(err, context)" than "wrapf(err, context)".
func Errorf(err error, format string, args ...any) error {
	return Wrapf(err, format, args...)
}

// Error wraps a plain error, capturing a stack frame, without a message
// prefix.
func Error(err error) error {
	return Wrap(err)
}

// Fatal prints a stack-carrying error (if any) and exits the process with
// status 1. A non-stackful error panics instead, since it indicates a bug
// in the caller rather than an expected fatal condition.
func Fatal(err error) {
	if err == nil {
		panic("ex.Fatal called with nil error")
	}
	var se *stackfulError
	if !errors.As(err, &se) {
		panic(err)
	}
	fmt.Fprintln(os.Stderr, se.Error())
	fmt.Fprintln(os.Stderr, "Stack:")
	for _, fr := range se.frame {
		fmt.Fprintln(os.Stderr, fr)
	}
	os.Exit(1)
}

// Fatalf is the formatted convenience form of Fatal.
func Fatalf(format string, args ...any) {
	Fatal(Newf(format, args...))
}
