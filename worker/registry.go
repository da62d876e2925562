/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package worker

import (
	"sync"

	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/msg"
	"github.com/skal-io/skal/stats"
)

// process-wide worker registry, keyed by full name; the mutex is held
// only for lookup/insert/remove
var (
	reg     = make(map[string]*Worker, 16)
	regMu   sync.Mutex
	regSeq  int64
	regCond = sync.NewCond(&regMu)
)

func register(w *Worker) error {
	regMu.Lock()
	if _, ok := reg[w.name]; ok {
		regMu.Unlock()
		return cmn.NewErrDuplicateName("worker", w.name)
	}
	regSeq++
	w.seq = regSeq
	reg[w.name] = w
	regMu.Unlock()
	stats.WorkersLive.Inc()
	return nil
}

func unregister(name string) {
	regMu.Lock()
	if _, ok := reg[name]; ok {
		delete(reg, name)
		stats.WorkersLive.Dec()
		if len(reg) == 0 {
			regCond.Broadcast()
		}
	}
	regMu.Unlock()
}

// Lookup returns the registered worker, or nil.
func Lookup(name string) *Worker {
	regMu.Lock()
	w := reg[cmn.FullName(name)]
	regMu.Unlock()
	return w
}

// NumWorkers returns the live worker count.
func NumWorkers() int {
	regMu.Lock()
	n := len(reg)
	regMu.Unlock()
	return n
}

// WaitAll blocks the caller until all workers have terminated.
func WaitAll() {
	regMu.Lock()
	for len(reg) > 0 {
		regCond.Wait()
	}
	regMu.Unlock()
}

// TerminateAll posts skal-terminate to every live worker.
func TerminateAll() {
	regMu.Lock()
	names := make([]string, 0, len(reg))
	for name := range reg {
		names = append(names, name)
	}
	regMu.Unlock()
	for _, name := range names {
		Send(msg.NewInternal("skal", name, cmn.ActTerminate))
	}
}
