/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"errors"
	"fmt"
	"os"

	"github.com/skal-io/skal/cmn/nlog"
)

type (
	// ErrDuplicateName - a worker, group, or allocator name is already
	// registered in its scope.
	ErrDuplicateName struct {
		what string // "worker" | "group" | "allocator" | "executor"
		name string
	}
	// ErrNoSuchField - field lookup miss on a message.
	ErrNoSuchField struct {
		field string
	}
	// ErrNoSuchAllocator - unknown allocator name.
	ErrNoSuchAllocator struct {
		name string
	}
	// ErrBadBlob - create collision, open miss, or mapping of a
	// corrupted blob.
	ErrBadBlob struct {
		op     string
		id     string
		reason string
	}
	// ErrVersionMismatch - decoded wire version is not supported.
	ErrVersionMismatch struct {
		got, want byte
	}
)

// Exitf logs a fatal diagnostic and aborts the process; reserved for
// errors that corrupt process-wide invariants.
func Exitf(format string, a ...any) {
	nlog.Errorf(format, a...)
	nlog.Flush(true)
	os.Exit(1)
}

// ErrFormat - deserialization failure other than a version mismatch.
var ErrFormat = errors.New("message format error")

// ErrBadURL - malformed router URL.
var ErrBadURL = errors.New("bad router URL")

func NewErrDuplicateName(what, name string) *ErrDuplicateName {
	return &ErrDuplicateName{what: what, name: name}
}

func (e *ErrDuplicateName) Error() string {
	return fmt.Sprintf("%s %q already exists", e.what, e.name)
}

func IsErrDuplicateName(err error) bool {
	var e *ErrDuplicateName
	return errors.As(err, &e)
}

func NewErrNoSuchField(field string) *ErrNoSuchField { return &ErrNoSuchField{field} }

func (e *ErrNoSuchField) Error() string { return fmt.Sprintf("no such field %q", e.field) }

func IsErrNoSuchField(err error) bool {
	var e *ErrNoSuchField
	return errors.As(err, &e)
}

func NewErrNoSuchAllocator(name string) *ErrNoSuchAllocator { return &ErrNoSuchAllocator{name} }

func (e *ErrNoSuchAllocator) Error() string { return fmt.Sprintf("no such allocator %q", e.name) }

func IsErrNoSuchAllocator(err error) bool {
	var e *ErrNoSuchAllocator
	return errors.As(err, &e)
}

func NewErrBadBlob(op, id, reason string) *ErrBadBlob {
	return &ErrBadBlob{op: op, id: id, reason: reason}
}

func (e *ErrBadBlob) Error() string {
	return fmt.Sprintf("bad blob: %s %q: %s", e.op, e.id, e.reason)
}

func IsErrBadBlob(err error) bool {
	var e *ErrBadBlob
	return errors.As(err, &e)
}

func NewErrVersionMismatch(got, want byte) *ErrVersionMismatch {
	return &ErrVersionMismatch{got: got, want: want}
}

func (e *ErrVersionMismatch) Error() string {
	return fmt.Sprintf("message version mismatch: got %d, support %d", e.got, e.want)
}

func IsErrVersionMismatch(err error) bool {
	var e *ErrVersionMismatch
	return errors.As(err, &e)
}
