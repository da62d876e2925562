/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package blob

import (
	"sync"

	"github.com/skal-io/skal/cmn"
)

// Scope classifies how far a blob created by an allocator can reach.
type Scope int

const (
	ScopeProcess  Scope = iota // e.g. the default heap-backed allocator
	ScopeComputer              // e.g. shared memory
	ScopeSystem                // e.g. network-attached object storage
)

func (s Scope) String() string {
	switch s {
	case ScopeProcess:
		return "process"
	case ScopeComputer:
		return "computer"
	case ScopeSystem:
		return "system"
	}
	return "invalid"
}

// Allocator creates and reopens blobs. Built-in allocators "in-process"
// and "shared-memory" are always registered.
type Allocator interface {
	Name() string
	Scope() Scope
	Create(id string, size int64) (*Blob, error)
	Open(id string) (*Blob, error)
}

const (
	InProcName = "in-process"
	ShmName    = "shared-memory"
)

var (
	allocators = make(map[string]Allocator, 4)
	amu        sync.Mutex
)

func init() {
	allocators[InProcName] = newInProcAllocator()
	allocators[ShmName] = newShmAllocator()
}

// RegisterAllocator adds a custom allocator; the name must be unique.
func RegisterAllocator(a Allocator) error {
	amu.Lock()
	defer amu.Unlock()
	if _, ok := allocators[a.Name()]; ok {
		return cmn.NewErrDuplicateName("allocator", a.Name())
	}
	allocators[a.Name()] = a
	return nil
}

func GetAllocator(name string) (Allocator, error) {
	amu.Lock()
	a, ok := allocators[name]
	amu.Unlock()
	if !ok {
		return nil, cmn.NewErrNoSuchAllocator(name)
	}
	return a, nil
}

// Create makes a new blob through the named allocator and returns a
// proxy holding its first reference.
func Create(allocName, id string, size int64) (*Proxy, error) {
	a, err := GetAllocator(allocName)
	if err != nil {
		return nil, err
	}
	b, err := a.Create(id, size)
	if err != nil {
		return nil, err
	}
	return NewProxy(b), nil
}

// Open reopens an existing blob by id, if the allocator's scope permits.
func Open(allocName, id string) (*Proxy, error) {
	a, err := GetAllocator(allocName)
	if err != nil {
		return nil, err
	}
	b, err := a.Open(id)
	if err != nil {
		return nil, err
	}
	return NewProxy(b), nil
}
