// Package queue implements the per-worker three-lane priority message
// queue (internal / urgent / regular) with a back-pressure threshold.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package queue

import (
	"sync"

	"github.com/skal-io/skal/cmn/debug"
	"github.com/skal-io/skal/msg"
)

// NotifyFn fires after every successful push; when the queue is owned by
// a worker, it wakes the owning executor.
type NotifyFn func()

// Queue never blocks and never fails on push: it is unbounded beyond its
// threshold. The threshold only triggers back-pressure.
type Queue struct {
	mu        sync.Mutex
	internal  []*msg.Msg
	urgent    []*msg.Msg
	regular   []*msg.Msg
	threshold int64
	notify    NotifyFn
}

func New(threshold int64) *Queue {
	debug.Assert(threshold > 0)
	return &Queue{threshold: threshold}
}

// SetNotify installs the push callback; call before the queue goes live.
func (q *Queue) SetNotify(fn NotifyFn) { q.notify = fn }

func (q *Queue) Push(m *msg.Msg) {
	debug.Assert(m != nil)
	q.mu.Lock()
	switch {
	case m.Internal():
		q.internal = append(q.internal, m)
	case m.Urgent():
		q.urgent = append(q.urgent, m)
	default:
		q.regular = append(q.regular, m)
	}
	notify := q.notify
	q.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Pop is non-blocking. Order: internal first; then, unless internalOnly,
// urgent before regular. Returns nil when nothing is poppable.
func (q *Queue) Pop(internalOnly bool) (m *msg.Msg) {
	q.mu.Lock()
	switch {
	case len(q.internal) > 0:
		m, q.internal = q.internal[0], q.internal[1:]
	case internalOnly:
	case len(q.urgent) > 0:
		m, q.urgent = q.urgent[0], q.urgent[1:]
	case len(q.regular) > 0:
		m, q.regular = q.regular[0], q.regular[1:]
	}
	q.mu.Unlock()
	return m
}

func (q *Queue) len() int64 {
	return int64(len(q.internal) + len(q.urgent) + len(q.regular))
}

func (q *Queue) Len() int64 {
	q.mu.Lock()
	n := q.len()
	q.mu.Unlock()
	return n
}

func (q *Queue) NumInternal() int64 {
	q.mu.Lock()
	n := int64(len(q.internal))
	q.mu.Unlock()
	return n
}

func (q *Queue) Threshold() int64 { return q.threshold }

func (q *Queue) IsEmpty() bool { return q.Len() == 0 }

func (q *Queue) IsFull() bool { return q.Len() >= q.threshold }

func (q *Queue) IsHalfFull() bool { return q.Len() >= q.threshold/2 }

// BelowHalf reports whether the queue has drained below half-threshold;
// this is the xon trigger (strict, so that threshold 1 drains at zero).
func (q *Queue) BelowHalf() bool { return 2*q.Len() < q.threshold }

// Drain empties the queue, closing dropped messages; used when a worker
// is torn down.
func (q *Queue) Drain() {
	q.mu.Lock()
	lanes := [][]*msg.Msg{q.internal, q.urgent, q.regular}
	q.internal, q.urgent, q.regular = nil, nil, nil
	q.mu.Unlock()
	for _, lane := range lanes {
		for _, m := range lane {
			m.Close()
		}
	}
}
