// Package blob provides reference-counted shared buffers behind
// pluggable allocators, with scoped exclusive mapping.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package blob

import (
	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/cmn/atomic"
	"github.com/skal-io/skal/cmn/debug"
)

// backing is what a concrete allocator supplies per blob.
type backing interface {
	// mapBytes returns the payload; called under the mapping lock
	mapBytes() ([]byte, error)
	// unmapBytes releases whatever mapBytes set up
	unmapBytes() error
	// free destroys the underlying region; called when refs reach zero
	free()
}

// Blob is an opaque byte region created by an allocator. The refcount
// counts proxies; the blob is destroyed when it reaches zero.
type Blob struct {
	allocName string
	id        string
	size      int64
	refs      atomic.Int64
	mapCh     chan struct{} // cap-1; waiters queue FIFO
	impl      backing
}

func newBlob(allocName, id string, size int64, impl backing) *Blob {
	b := &Blob{allocName: allocName, id: id, size: size, impl: impl}
	b.mapCh = make(chan struct{}, 1)
	b.mapCh <- struct{}{}
	return b
}

func (b *Blob) ID() string            { return b.id }
func (b *Blob) Size() int64           { return b.size }
func (b *Blob) AllocatorName() string { return b.allocName }

func (b *Blob) ref() int64 { return b.refs.Inc() }

func (b *Blob) unref() {
	if n := b.refs.Dec(); n == 0 {
		b.impl.free()
	} else {
		debug.Assert(n > 0, "blob refcount underflow: ", b.id)
	}
}

// lockMap blocks until the blob's mapping window is free.
func (b *Blob) lockMap()   { <-b.mapCh }
func (b *Blob) unlockMap() { b.mapCh <- struct{}{} }

// Proxy is a handle holding one reference to a blob and granting scoped
// exclusive mapping.
type Proxy struct {
	b      *Blob
	mapped []byte // non-nil while this proxy holds the mapping
	closed bool
}

// NewProxy wraps ownership of one reference.
func NewProxy(b *Blob) *Proxy {
	debug.Assert(b != nil)
	b.ref()
	return &Proxy{b: b}
}

// Clone returns a new proxy to the same blob, incrementing the refcount.
// Cloning a proxy that currently holds a mapping is disallowed.
func (p *Proxy) Clone() *Proxy {
	debug.Assert(p.mapped == nil, "cannot copy a mapped proxy: ", p.b.id)
	return NewProxy(p.b)
}

// Close releases the proxy's reference; idempotent.
func (p *Proxy) Close() {
	if p.closed {
		return
	}
	debug.Assert(p.mapped == nil, "closing a mapped proxy: ", p.b.id)
	p.closed = true
	p.b.unref()
}

func (p *Proxy) ID() string            { return p.b.ID() }
func (p *Proxy) Size() int64           { return p.b.Size() }
func (p *Proxy) AllocatorName() string { return p.b.AllocatorName() }

// Map acquires the blob's mapping window and returns the payload. It
// blocks while another mapping is active, in or out of process. Must be
// paired with Unmap.
func (p *Proxy) Map() ([]byte, error) {
	debug.Assert(!p.closed)
	debug.Assert(p.mapped == nil, "proxy already holds the mapping: ", p.b.id)
	p.b.lockMap()
	buf, err := p.b.impl.mapBytes()
	if err != nil {
		p.b.unlockMap()
		return nil, cmn.NewErrBadBlob("map", p.b.id, err.Error())
	}
	p.mapped = buf
	return buf, nil
}

// Unmap releases the mapping acquired by Map.
func (p *Proxy) Unmap() {
	debug.Assert(p.mapped != nil, "proxy does not hold the mapping: ", p.b.id)
	err := p.b.impl.unmapBytes()
	p.mapped = nil
	p.b.unlockMap()
	debug.AssertNoErr(err)
}

// ScopedMap runs fn with the blob mapped; the mapping window is released
// on every exit path, including a panicking fn.
func (p *Proxy) ScopedMap(fn func(b []byte) error) error {
	buf, err := p.Map()
	if err != nil {
		return err
	}
	defer p.Unmap()
	return fn(buf)
}
