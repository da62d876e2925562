// Package sched implements executor scheduling policies: the rule used
// to pick the next ready worker.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package sched

import (
	"sync"

	"github.com/skal-io/skal/worker"
)

// Policy selects a concrete scheduler.
type Policy int

const (
	Fair     Policy = iota // bounded unfairness: largest queue first
	Carousel               // round-robin
	Priority               // by worker priority
)

// Scheduler picks the next worker to run among ready workers. Select
// returns a worker with at least one poppable message given its current
// throttle state, or nil when no worker is ready.
type Scheduler interface {
	Add(w *worker.Worker)
	Remove(name string)
	Select() *worker.Worker
}

func New(p Policy) Scheduler {
	switch p {
	case Carousel:
		return &carousel{}
	case Priority:
		return &priority{}
	default:
		return &fair{}
	}
}

// base maintains the worker set in insertion order (the tie-break).
type base struct {
	mu      sync.Mutex
	workers []*worker.Worker
}

func (b *base) Add(w *worker.Worker) {
	b.mu.Lock()
	b.workers = append(b.workers, w)
	b.mu.Unlock()
}

func (b *base) Remove(name string) {
	b.mu.Lock()
	for i, w := range b.workers {
		if w.Name() == name {
			b.workers = append(b.workers[:i], b.workers[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
}

// ready: poppable given the worker's throttle state
func ready(w *worker.Worker) bool {
	if w.Dead() {
		return false
	}
	if w.Blocked() {
		return w.NumInternal() > 0
	}
	return w.NumMsgs() > 0
}

// fair: a blocked worker with pending internal traffic goes first (so
// that xon can get through); otherwise the largest queue wins, which
// lets a starving worker catch up within O(queue-size) rounds.
type fair struct{ base }

func (f *fair) Select() (selected *worker.Worker) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.workers {
		if w.Dead() {
			continue
		}
		if w.Blocked() {
			if w.NumInternal() > 0 {
				return w
			}
			continue
		}
		if n := w.NumMsgs(); n > 0 {
			if selected == nil || n > selected.NumMsgs() {
				selected = w
			}
		}
	}
	return selected
}

type carousel struct {
	base
	next int
}

func (c *carousel) Select() *worker.Worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.workers)
	for i := range n {
		w := c.workers[(c.next+i)%n]
		if ready(w) {
			c.next = (c.next + i + 1) % n
			return w
		}
	}
	return nil
}

type priority struct{ base }

func (p *priority) Select() (selected *worker.Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		if !ready(w) {
			continue
		}
		if selected == nil || w.Priority() > selected.Priority() {
			selected = w
		}
	}
	return selected
}
