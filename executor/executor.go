// Package executor multiplexes workers over a bounded thread pool under
// a pluggable scheduling policy.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package executor

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/cmn/atomic"
	"github.com/skal-io/skal/cmn/nlog"
	"github.com/skal-io/skal/sched"
	"github.com/skal-io/skal/worker"
)

// sema is the dispatcher's counting semaphore: posted once per push into
// any owned worker's queue, plus once on termination.
type sema struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int
}

func newSema() *sema {
	s := &sema{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *sema) post() {
	s.mu.Lock()
	s.n++
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *sema) take() {
	s.mu.Lock()
	for s.n == 0 {
		s.cond.Wait()
	}
	s.n--
	s.mu.Unlock()
}

// Executor owns a scheduler, a pool of worker goroutines, and a single
// dispatcher that feeds it.
type Executor struct {
	scheduler sched.Scheduler
	sema      *sema
	taskCh    chan *worker.Worker
	eg        errgroup.Group
	done      chan struct{} // dispatcher exited
	stopping  atomic.Bool
}

// New starts an executor and adds it to the process-wide registry.
func New(policy sched.Policy, poolSize int) *Executor {
	if poolSize <= 0 {
		poolSize = cmn.DfltPoolSize
	}
	e := &Executor{
		scheduler: sched.New(policy),
		sema:      newSema(),
		taskCh:    make(chan *worker.Worker, poolSize),
		done:      make(chan struct{}),
	}
	for range poolSize {
		e.eg.Go(func() error {
			for w := range e.taskCh {
				e.runOne(w)
			}
			return nil
		})
	}
	go e.dispatch()
	addExecutor(e)
	return e
}

// AddWorker places the worker under this executor's management.
func (e *Executor) AddWorker(w *worker.Worker) {
	w.SetNotify(e.sema.post)
	e.scheduler.Add(w)
	// cover messages enqueued before the notification was wired
	// (skal-init, at least)
	e.sema.post()
}

func (e *Executor) dispatch() {
	defer close(e.done)
	for {
		e.sema.take()
		if e.stopping.Load() {
			close(e.taskCh)
			return
		}
		w := e.scheduler.Select()
		if w == nil {
			// a worker may have terminated before processing the
			// message this credit was posted for
			continue
		}
		e.taskCh <- w
	}
}

// runOne performs a single-message processing step. The per-worker run
// flag keeps a worker on at most one pool thread; a scheduling request
// that finds the worker already running, or finds its queue already
// drained, hands its credit back to the semaphore so that it is not lost.
func (e *Executor) runOne(w *worker.Worker) {
	if !w.TryAcquire() {
		e.sema.post()
		return
	}
	idle := w.NumMsgs() == 0
	terminated := w.Step()
	w.Release()
	if terminated {
		e.scheduler.Remove(w.Name())
		return
	}
	if idle || w.NumMsgs() > 0 {
		e.sema.post()
	}
}

// Close tears down the dispatcher and the pool; workers still registered
// stay in the worker registry but are no longer scheduled.
func (e *Executor) Close() {
	if !e.stopping.CAS(false, true) {
		return
	}
	removeExecutor(e)
	e.sema.post()
	<-e.done
	if err := e.eg.Wait(); err != nil {
		nlog.Warningln(err)
	}
}
