/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package worker

import (
	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/cmn/debug"
	"github.com/skal-io/skal/cmn/nlog"
	"github.com/skal-io/skal/msg"
	"github.com/skal-io/skal/router"
	"github.com/skal-io/skal/stats"
)

// Send is the single entry point: it consumes the message, tries local
// delivery, and falls back to the router.
func Send(m *msg.Msg) {
	stats.MsgsSent.Inc()
	if Post(m) {
		return
	}
	if router.SendOut(m) {
		stats.MsgsRouted.Inc()
		return
	}
	drop(m)
}

// Post attempts in-process delivery; false means "not local". Recipients
// bound for the router are never delivered in-process.
func Post(m *msg.Msg) bool {
	if cmn.IsRouterBound(m.Recipient()) {
		return false
	}
	regMu.Lock()
	w, ok := reg[m.Recipient()]
	regMu.Unlock()
	if !ok {
		debug.Infof("no worker %q in this process", m.Recipient())
		return false
	}

	full := w.q.IsFull()
	if full && !m.Internal() && m.Flags()&msg.FlagDropOK != 0 {
		if m.Flags()&msg.FlagNtfDrop != 0 {
			Send(msg.NewInternal(w.name, m.Sender(), cmn.ActErrorDrop))
		}
		drop(m)
		return true
	}

	tellXoff := full && !m.Internal() && m.Sender() != ""
	sender := m.Sender()
	w.q.Push(m)
	stats.MsgsDelivered.Inc()
	stats.QueueDepth.WithLabelValues(w.name).Set(float64(w.q.Len()))

	if tellXoff {
		// the recipient queue is full: throttle the sender
		nlog.Infof("%q is sending too fast to %q; sending it %s",
			sender, w.name, cmn.ActXoff)
		stats.XoffEvents.Inc()
		w.markXon(sender)
		Send(msg.NewInternal(w.name, sender, cmn.ActXoff))
	}
	return true
}

func drop(m *msg.Msg) {
	debug.Infof("dropping %s", m)
	stats.MsgsDropped.Inc()
	m.Close()
}

// RaiseAlarm surfaces an alarm to the router as a skal-alarm message.
func RaiseAlarm(a msg.Alarm) {
	m := msg.NewInternal(a.Origin, cmn.RouterName, cmn.ActAlarm)
	m.AttachAlarm(a)
	Send(m)
}
