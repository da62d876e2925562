// Package worker implements named cooperative workers: a message queue,
// a user handler, the throttling state machine, the process-wide worker
// registry, and the single send() entry point.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package worker

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/cmn/atomic"
	"github.com/skal-io/skal/cmn/debug"
	"github.com/skal-io/skal/cmn/mono"
	"github.com/skal-io/skal/cmn/nlog"
	"github.com/skal-io/skal/msg"
	"github.com/skal-io/skal/queue"
	"github.com/skal-io/skal/stats"
)

// ErrDone is returned by a handler to request clean termination,
// distinct from a failure.
var ErrDone = errors.New("worker done")

// Handler consumes an owned message; a non-nil error terminates the
// worker. Handlers run synchronously on a pool thread and must not
// perform long blocking waits.
type Handler func(*msg.Msg) error

// Opts enumerates worker creation options; zero values mean defaults.
type Opts struct {
	Threshold   int64         // queue threshold, must be > 0 (default 100)
	XoffTimeout time.Duration // throttle failsafe (default 50ms)
	Priority    int           // used by the priority scheduling policy
	NumaNode    int           // accepted, recorded; pinning is not implemented
	StackSize   int64         // accepted, ignored: goroutine stacks grow on demand
}

// Worker is a named actor. The executor invokes it one message at a time.
type Worker struct {
	name        string
	handler     Handler
	q           *queue.Queue
	xoffTimeout time.Duration
	priority    int
	numaNode    int

	mu        sync.Mutex
	blockedBy map[string]struct{} // names that told us to stop
	lastXoff  int64               // mono ns of most recent xoff arrival
	notifyXon map[string]struct{} // names to send skal-xon to on drain

	running atomic.Bool // one processing step at a time
	dead    atomic.Bool
	seq     int64 // registry insertion order
}

// New creates the worker, registers its name globally, and injects the
// skal-init first-tick message. The caller (normally an executor) must
// attach it before messages can be processed.
func New(name string, handler Handler, opts *Opts) (*Worker, error) {
	if name == "" || handler == nil {
		return nil, fmt.Errorf("worker requires a name and a handler")
	}
	if opts == nil {
		opts = &Opts{}
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = cmn.DfltQueueThreshold
	}
	xoffTimeout := opts.XoffTimeout
	if xoffTimeout <= 0 {
		xoffTimeout = cmn.DfltXoffTimeout
	}
	w := &Worker{
		name:        cmn.FullName(name),
		handler:     handler,
		q:           queue.New(threshold),
		xoffTimeout: xoffTimeout,
		priority:    opts.Priority,
		numaNode:    opts.NumaNode,
		blockedBy:   make(map[string]struct{}, 2),
		notifyXon:   make(map[string]struct{}, 2),
	}
	if err := register(w); err != nil {
		return nil, err
	}
	nlog.Infof("created worker %q", w.name)
	w.q.Push(msg.NewInternal("skal", w.name, cmn.ActInit))
	Send(msg.NewInternal(w.name, cmn.RouterName, cmn.ActBorn))
	return w, nil
}

func (w *Worker) Name() string  { return w.name }
func (w *Worker) Priority() int { return w.priority }
func (w *Worker) Seq() int64    { return w.seq }
func (w *Worker) Dead() bool    { return w.dead.Load() }

// Queue accessors used by schedulers and the post path.
func (w *Worker) NumMsgs() int64     { return w.q.Len() }
func (w *Worker) NumInternal() int64 { return w.q.NumInternal() }

// SetNotify wires the queue's push notification to the owning executor.
func (w *Worker) SetNotify(fn queue.NotifyFn) { w.q.SetNotify(fn) }

// Blocked reports whether the worker is currently throttled by peers.
func (w *Worker) Blocked() bool {
	w.mu.Lock()
	blocked := len(w.blockedBy) > 0 && mono.Since(w.lastXoff) < w.xoffTimeout
	w.mu.Unlock()
	return blocked
}

// TryAcquire/Release enforce "at most one processing step at a time".
func (w *Worker) TryAcquire() bool { return w.running.CAS(false, true) }
func (w *Worker) Release()         { w.running.Store(false) }

// Step performs one processing step: pop one message honoring the
// throttle state, dispatch it, then release any senders we are blocking
// once drained. Returns true when the worker terminated.
func (w *Worker) Step() (terminated bool) {
	internalOnly := false
	w.mu.Lock()
	if len(w.blockedBy) > 0 {
		if mono.Since(w.lastXoff) < w.xoffTimeout {
			internalOnly = true
		} else {
			// timed out with no fresh xoff evidence: silence is consent
			nlog.Infof("worker %q resumes after xoff timeout", w.name)
			clear(w.blockedBy)
		}
	}
	w.mu.Unlock()

	m := w.q.Pop(internalOnly)
	if m == nil {
		return false
	}
	stats.QueueDepth.WithLabelValues(w.name).Set(float64(w.q.Len()))

	if m.Internal() {
		switch m.Action() {
		case cmn.ActXoff:
			w.mu.Lock()
			w.blockedBy[m.Sender()] = struct{}{}
			w.lastXoff = mono.NanoTime()
			w.mu.Unlock()
		case cmn.ActXon:
			w.mu.Lock()
			delete(w.blockedBy, m.Sender())
			w.mu.Unlock()
		case cmn.ActTerminate:
			terminated = true
		default:
			terminated = w.invoke(m)
		}
	} else {
		terminated = w.invoke(m)
	}

	if terminated || w.q.BelowHalf() {
		w.sendXon()
	}
	if terminated {
		w.terminate()
	}
	return terminated
}

// invoke runs the user handler with the caller identity bound; a panic
// terminates the worker and raises an alarm with the worker as origin.
func (w *Worker) invoke(m *msg.Msg) (terminated bool) {
	cmn.SetMe(w.name)
	defer cmn.UnsetMe()
	defer func() {
		if r := recover(); r != nil {
			nlog.Errorf("worker %q panicked: %v", w.name, r)
			RaiseAlarm(msg.NewAlarm("skal-worker-crash", msg.SeverityError,
				true /*on*/, true /*auto-off*/, fmt.Sprint(r)))
			terminated = true
		}
	}()
	err := w.handler(m)
	switch {
	case err == nil:
	case errors.Is(err, ErrDone):
		nlog.Infof("worker %q terminated naturally", w.name)
		terminated = true
	default:
		nlog.Warningf("worker %q handler failed: %v", w.name, err)
		RaiseAlarm(msg.NewAlarm("skal-worker-error", msg.SeverityError,
			true, true, err.Error()))
		terminated = true
	}
	return terminated
}

// sendXon releases every peer we are currently blocking.
func (w *Worker) sendXon() {
	w.mu.Lock()
	if len(w.notifyXon) == 0 {
		w.mu.Unlock()
		return
	}
	peers := make([]string, 0, len(w.notifyXon))
	for peer := range w.notifyXon {
		peers = append(peers, peer)
	}
	clear(w.notifyXon)
	w.mu.Unlock()
	for _, peer := range peers {
		debug.Infof("worker %q releasing %q", w.name, peer)
		Send(msg.NewInternal(w.name, peer, cmn.ActXon))
	}
}

func (w *Worker) terminate() {
	w.dead.Store(true)
	unregister(w.name)
	w.q.Drain()
	stats.QueueDepth.DeleteLabelValues(w.name)
	Send(msg.NewInternal(w.name, cmn.RouterName, cmn.ActDied))
	nlog.Infof("worker %q terminated", w.name)
}

// markXon records that peer must be told skal-xon once we drain.
func (w *Worker) markXon(peer string) {
	w.mu.Lock()
	w.notifyXon[peer] = struct{}{}
	w.mu.Unlock()
}
