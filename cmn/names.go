// Package cmn provides common low-level types and utilities for all
// skal packages: naming, process identity, error kinds, configuration.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"bytes"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// StandaloneDomain is the reserved domain literal meaning "not connected
// to a router".
const StandaloneDomain = "skal-standalone"

// RouterName is the local name of the router daemon. Any recipient whose
// local part equals it, or begins with it, is routed externally.
const RouterName = "skald"

var (
	domain   = StandaloneDomain
	domainMu sync.RWMutex
)

func Domain() string {
	domainMu.RLock()
	d := domain
	domainMu.RUnlock()
	return d
}

// SetDomain is called once, at init time, before any worker is created.
func SetDomain(d string) {
	domainMu.Lock()
	if d == "" {
		d = StandaloneDomain
	}
	domain = d
	domainMu.Unlock()
}

func Standalone() bool { return Domain() == StandaloneDomain }

// FullName resolves a free-form name to its canonical `local@domain`
// form. The empty name resolves to itself.
func FullName(name string) string {
	if name == "" || strings.ContainsRune(name, '@') {
		return name
	}
	return name + "@" + Domain()
}

// LocalName returns the part of a full name before the domain separator.
func LocalName(name string) string {
	if i := strings.IndexByte(name, '@'); i >= 0 {
		return name[:i]
	}
	return name
}

// IsRouterBound reports whether the recipient must be handed to the
// router: its local part equals "skald" or begins with "skald".
func IsRouterBound(recipient string) bool {
	return strings.HasPrefix(LocalName(recipient), RouterName)
}

//
// caller identity: the full name of the worker whose handler is running
// on the calling goroutine, or a stable per-goroutine label otherwise
// (the original runtime labels senders by thread id)
//

var gme sync.Map // goroutine ID => worker full name

func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 123 [running]: ..."
	f := bytes.Fields(buf[:n])
	id, err := strconv.ParseInt(string(f[1]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// Me returns the identity used to label senders.
func Me() string {
	gid := goroutineID()
	if name, ok := gme.Load(gid); ok {
		return name.(string)
	}
	return "g" + strconv.FormatInt(gid, 10)
}

// MeWorker returns the name of the worker whose handler is running on
// the calling goroutine, if any.
func MeWorker() (string, bool) {
	if name, ok := gme.Load(goroutineID()); ok {
		return name.(string), true
	}
	return "", false
}

// SetMe binds the calling goroutine to the named worker for the duration
// of one processing step; UnsetMe removes the binding.
func SetMe(name string) { gme.Store(goroutineID(), name) }
func UnsetMe()          { gme.Delete(goroutineID()) }
