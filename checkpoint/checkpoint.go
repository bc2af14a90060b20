// Package checkpoint decorates errors with the location they passed through, which results
// in something similar to a stacktrace when a driver error bubbles up through several layers.
// Every error attached to a checkpoint can still be checked by errors.Is and retrieved by errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
)

// From wraps err by a new checkpoint which only adds the caller location.
// It returns nil if err == nil.
func From(err error) error {
	if err == nil || isPassthrough(err) {
		return err
	}

	return newCheckpoint(err, nil)
}

// Wrap adds a checkpoint to prev and attaches err as the description of that checkpoint.
// Returns nil if prev == nil, so it can be used directly on a returned error:
//  var ErrDeviceIO = errors.New("device I/O failed")
//
//  func readSector() error {
//  	err := dev.ReadBlock(buf, sector)
//  	return checkpoint.Wrap(err, ErrDeviceIO)
//  }
// errors.Is matches both ErrDeviceIO and whatever the device returned.
func Wrap(prev, err error) error {
	if prev == nil || isPassthrough(prev) {
		return prev
	}

	return newCheckpoint(prev, err)
}

// Wrapf is like Wrap but formats an additional message which is shown next to err.
// errors.Is still only matches prev and err.
func Wrapf(prev, err error, format string, args ...interface{}) error {
	if prev == nil || isPassthrough(prev) {
		return prev
	}

	c := newCheckpoint(prev, err)
	c.msg = fmt.Sprintf(format, args...)
	return c
}

// isPassthrough reports errors which must never be wrapped because callers compare them with ==.
// https://github.com/golang/go/issues/39155
func isPassthrough(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

func newCheckpoint(prev, err error) *checkpoint {
	// Skip newCheckpoint and the exported function calling it.
	_, file, line, ok := runtime.Caller(2)

	return &checkpoint{
		err:      err,
		prev:     prev,
		callerOk: ok,
		file:     filepath.Base(file),
		line:     line,
	}
}

type checkpoint struct {
	err  error
	prev error
	msg  string

	callerOk bool
	file     string
	line     int
}

func (e *checkpoint) location() string {
	if !e.callerOk {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", e.file, e.line)
}

func (e *checkpoint) Error() string {
	var b strings.Builder
	b.WriteString(e.location())

	if e.err != nil {
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	}
	if e.msg != "" {
		b.WriteString(" (")
		b.WriteString(e.msg)
		b.WriteString(")")
	}

	// Nested checkpoints are printed one per line, foreign errors are indented below the last one.
	if _, ok := e.prev.(*checkpoint); ok {
		return b.String() + "\n" + e.prev.Error()
	}
	return b.String() + "\n\t" + strings.ReplaceAll(e.prev.Error(), "\n", "\n\t")
}

func (e *checkpoint) Unwrap() error {
	return e.prev
}

func (e *checkpoint) Is(target error) bool {
	if e.err == nil {
		return false
	}
	return errors.Is(e.err, target)
}

func (e *checkpoint) As(target interface{}) bool {
	if e.err == nil {
		return false
	}
	return errors.As(e.err, target)
}
