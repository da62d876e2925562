/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package queue_test

import (
	"github.com/skal-io/skal/msg"
	"github.com/skal-io/skal/queue"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func regular(action string) *msg.Msg  { return msg.NewFrom("a", "b", action, 0) }
func urgent(action string) *msg.Msg   { return msg.NewFrom("a", "b", action, msg.FlagUrgent) }
func internal(action string) *msg.Msg { return msg.NewInternal("a", "b", action) }

var _ = Describe("Queue", func() {
	It("should pop lanes in priority order, FIFO within each lane", func() {
		q := queue.New(100)
		q.Push(regular("r1"))
		q.Push(urgent("u1"))
		q.Push(regular("r2"))
		q.Push(internal("i1"))
		q.Push(urgent("u2"))
		q.Push(internal("i2"))

		var actions []string
		for m := q.Pop(false); m != nil; m = q.Pop(false) {
			actions = append(actions, m.Action())
		}
		Expect(actions).To(Equal([]string{"i1", "i2", "u1", "u2", "r1", "r2"}))
	})

	It("should pop internal only when asked to", func() {
		q := queue.New(100)
		q.Push(regular("r1"))
		q.Push(internal("i1"))

		m := q.Pop(true)
		Expect(m).NotTo(BeNil())
		Expect(m.Action()).To(Equal("i1"))
		Expect(q.Pop(true)).To(BeNil())
		Expect(q.Len()).To(Equal(int64(1)))
	})

	It("should return each message exactly once", func() {
		q := queue.New(3)
		const total = 1000
		for i := range total {
			m := regular("r")
			m.AddInt("n", int64(i))
			q.Push(m)
		}
		seen := make(map[int64]bool, total)
		for m := q.Pop(false); m != nil; m = q.Pop(false) {
			n, err := m.Int("n")
			Expect(err).NotTo(HaveOccurred())
			Expect(seen[n]).To(BeFalse())
			seen[n] = true
		}
		Expect(seen).To(HaveLen(total))
	})

	It("should never fail to push beyond the threshold", func() {
		q := queue.New(2)
		for range 10 {
			q.Push(regular("r"))
		}
		Expect(q.Len()).To(Equal(int64(10)))
		Expect(q.IsFull()).To(BeTrue())
	})

	It("should fire the notify callback on every push", func() {
		q := queue.New(10)
		var fired int
		q.SetNotify(func() { fired++ })
		q.Push(regular("r"))
		q.Push(urgent("u"))
		q.Push(internal("i"))
		Expect(fired).To(Equal(3))
	})

	It("should derive fullness predicates from the threshold", func() {
		q := queue.New(4)
		Expect(q.IsEmpty()).To(BeTrue())
		Expect(q.IsFull()).To(BeFalse())
		Expect(q.IsHalfFull()).To(BeFalse())
		Expect(q.BelowHalf()).To(BeTrue())

		q.Push(regular("r1"))
		q.Push(regular("r2"))
		Expect(q.IsHalfFull()).To(BeTrue())
		Expect(q.IsFull()).To(BeFalse())
		Expect(q.BelowHalf()).To(BeFalse())

		q.Push(regular("r3"))
		q.Push(regular("r4"))
		Expect(q.IsFull()).To(BeTrue())
	})

	It("should still function with threshold 1", func() {
		q := queue.New(1)
		Expect(q.IsHalfFull()).To(BeTrue()) // vacuously, from zero
		Expect(q.BelowHalf()).To(BeTrue())
		q.Push(regular("r"))
		Expect(q.IsFull()).To(BeTrue())
		Expect(q.BelowHalf()).To(BeFalse())
		Expect(q.Pop(false)).NotTo(BeNil())
		Expect(q.BelowHalf()).To(BeTrue())
	})
})
