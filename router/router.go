// Package router is the core's hook to whatever handles out-of-process
// routing: an outbound port invoked when local delivery fails, and an
// inbound deliver path fed by the transport adapter.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package router

import (
	"sync"

	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/cmn/nlog"
	"github.com/skal-io/skal/msg"
)

// Port forwards messages to the router daemon.
type Port interface {
	Send(m *msg.Msg) error
	Close() error
}

// the process-wide router port: explicit init/teardown, no ambient
// construction on first use
var (
	mu   sync.Mutex
	port Port
	sink func(*msg.Msg) // local re-entry for delivered messages
)

// Init installs the port and the local delivery sink.
func Init(p Port, localSink func(*msg.Msg)) {
	mu.Lock()
	port, sink = p, localSink
	mu.Unlock()
}

// Teardown uninstalls and closes the port. It does not wait for SendOut
// calls already in progress on other goroutines.
func Teardown() {
	mu.Lock()
	p := port
	port, sink = nil, nil
	mu.Unlock()
	if p != nil {
		if err := p.Close(); err != nil {
			nlog.Warningln(err)
		}
	}
}

// SendOut hands the message to the router port. Returns false when no
// port is installed (standalone); true means the message was consumed,
// including the ttl-expired drop at the boundary.
func SendOut(m *msg.Msg) bool {
	mu.Lock()
	p := port
	mu.Unlock()
	if p == nil {
		return false
	}
	if m.TTL() <= 0 {
		nlog.Warningf("dropping %s at the router boundary: ttl expired", m)
		m.Close()
		return true
	}
	if err := p.Send(m); err != nil {
		nlog.Errorf("router send of %s failed: %v", m, err)
		m.Close()
	}
	return true
}

// Deliver decodes a frame received from the daemon and re-enters the
// local send path. Decode failures drop the frame with an alarm; they do
// not terminate the receiver.
func Deliver(b []byte) {
	mu.Lock()
	deliver := sink
	mu.Unlock()
	if deliver == nil {
		nlog.Warningln("inbound frame with no delivery sink installed")
		return
	}
	m, err := msg.Decode(b)
	if err != nil {
		nlog.Errorf("dropping inbound frame: %v", err)
		a := msg.NewAlarm("skal-decode-error", msg.SeverityWarning,
			true /*on*/, true /*auto-off*/, err.Error())
		am := msg.NewInternal("", cmn.RouterName, cmn.ActAlarm)
		am.AttachAlarm(a)
		deliver(am)
		return
	}
	deliver(m)
}
