/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package blob

import (
	"sync"

	"github.com/skal-io/skal/cmn"
)

// inprocAllocator is the default heap-backed allocator. Blob ids are
// meaningful within the owning process only: live blobs are tracked in a
// table so that deserialization on the same process can reopen them.
type inprocAllocator struct {
	mu    sync.Mutex
	blobs map[string]*Blob
}

type inprocBacking struct {
	parent *inprocAllocator
	id     string
	data   []byte
}

func newInProcAllocator() *inprocAllocator {
	return &inprocAllocator{blobs: make(map[string]*Blob, 16)}
}

func (*inprocAllocator) Name() string { return InProcName }
func (*inprocAllocator) Scope() Scope { return ScopeProcess }

// Create allocates a heap buffer. The caller-supplied id is ignored and
// a fresh one is assigned.
func (a *inprocAllocator) Create(_ string, size int64) (*Blob, error) {
	if size <= 0 {
		return nil, cmn.NewErrBadBlob("create", "", "size must be > 0")
	}
	id := cmn.GenID()
	impl := &inprocBacking{parent: a, id: id, data: make([]byte, size)}
	b := newBlob(InProcName, id, size, impl)
	a.mu.Lock()
	a.blobs[id] = b
	a.mu.Unlock()
	return b, nil
}

func (a *inprocAllocator) Open(id string) (*Blob, error) {
	a.mu.Lock()
	b, ok := a.blobs[id]
	a.mu.Unlock()
	if !ok {
		return nil, cmn.NewErrBadBlob("open", id, "no such blob in this process")
	}
	return b, nil
}

func (ib *inprocBacking) mapBytes() ([]byte, error) { return ib.data, nil }
func (ib *inprocBacking) unmapBytes() error         { return nil }

func (ib *inprocBacking) free() {
	a := ib.parent
	a.mu.Lock()
	delete(a.blobs, ib.id)
	a.mu.Unlock()
	ib.data = nil
}
