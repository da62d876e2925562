// Package skal is a single-process actor/worker runtime: named
// cooperative workers communicate exclusively by message passing,
// multiplexed over bounded thread pools, with cooperative back-pressure
// and an optional out-of-process router daemon ("skald").
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package skal

import (
	"sync"
	"time"

	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/cmn/nlog"
	"github.com/skal-io/skal/executor"
	"github.com/skal-io/skal/msg"
	"github.com/skal-io/skal/router"
	"github.com/skal-io/skal/sched"
	"github.com/skal-io/skal/worker"
)

// convenience aliases so that simple applications import one package
type (
	Config  = cmn.Config
	Msg     = msg.Msg
	Alarm   = msg.Alarm
	Handler = worker.Handler
	Opts    = worker.Opts
)

// ErrDone requests clean worker termination from a handler.
var ErrDone = worker.ErrDone

var (
	initOnce sync.Once
	initErr  error
	active   cmn.Config
)

// Init initializes the framework; idempotent. With Standalone set, no
// router port is installed and out-of-process sends are dropped.
func Init(cfg *Config) error {
	initOnce.Do(func() { initErr = doInit(cfg) })
	return initErr
}

func doInit(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{Standalone: true}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.LogDir != "" {
		if err := nlog.SetLogDir(cfg.LogDir); err != nil {
			return err
		}
	}
	if cfg.Domain != "" {
		cmn.SetDomain(cfg.Domain)
	}
	cmn.InitID(uint64(time.Now().UnixNano()))
	if !cfg.Standalone {
		port, err := router.NewHTTPPort(cfg.RouterURL)
		if err != nil {
			return err
		}
		router.Init(port, worker.Send)
		nlog.Infof("connected router port: %s (domain %q)", cfg.RouterURL, cmn.Domain())
	} else {
		nlog.Infof("standalone (domain %q)", cmn.Domain())
	}
	active = *cfg
	return nil
}

// Send consumes the message: local delivery first, router fallback.
func Send(m *Msg) { worker.Send(m) }

// Wait blocks the caller until all workers have terminated.
func Wait() { worker.WaitAll() }

// Terminate posts skal-terminate to every live worker; it returns
// before the workers are actually gone - use Wait for that.
func Terminate() { worker.TerminateAll() }

// Fini tears down the router port (without waiting for sends already in
// progress) and flushes the log.
func Fini() {
	router.Teardown()
	nlog.Flush(true)
}

// NewWorker creates a worker and attaches it to an arbitrary live
// executor, creating a default fair executor when none exists.
func NewWorker(name string, handler Handler, opts *Opts) (*worker.Worker, error) {
	e := executor.Any()
	if e == nil {
		e = executor.New(sched.Fair, active.PoolSize)
	}
	w, err := worker.New(name, handler, opts)
	if err != nil {
		return nil, err
	}
	e.AddWorker(w)
	return w, nil
}
