// Package queue provides a bounded lock-free FIFO for handing values from
// edge handlers to the scheduler loop.
//
// Any number of producers may call TryEnqueue concurrently; exactly one
// consumer may call TryDequeue. Neither end blocks or allocates.
package queue

import "sync/atomic"

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// Queue is a fixed-capacity ring. Each slot carries a sequence number that
// tells producers and the consumer whose turn it is, so no lock is needed.
type Queue[T any] struct {
	slots []slot[T]
	size  uint64
	empty T

	enq atomic.Uint64 // next position to claim for writing
	deq atomic.Uint64 // next position to read; only the consumer stores

	accepted atomic.Uint64
	dropped  atomic.Uint64
}

// New creates a queue holding up to capacity values. TryDequeue returns
// empty when nothing is pending.
func New[T any](capacity int, empty T) *Queue[T] {
	if capacity < 1 {
		panic("queue: capacity must be >= 1")
	}
	q := &Queue[T]{
		slots: make([]slot[T], capacity),
		size:  uint64(capacity),
		empty: empty,
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// TryEnqueue appends v. It returns false, leaving the queue unchanged, when
// the queue is full.
func (q *Queue[T]) TryEnqueue(v T) bool {
	pos := q.enq.Load()
	for {
		s := &q.slots[pos%q.size]
		seq := s.seq.Load()
		switch diff := int64(seq - pos); {
		case diff == 0:
			if q.enq.CompareAndSwap(pos, pos+1) {
				s.val = v
				s.seq.Store(pos + 1)
				q.accepted.Add(1)
				return true
			}
			pos = q.enq.Load()
		case diff < 0:
			q.dropped.Add(1)
			return false
		default:
			pos = q.enq.Load()
		}
	}
}

// TryDequeue removes the oldest value, or returns the empty sentinel.
// Must only be called from the single consumer.
func (q *Queue[T]) TryDequeue() T {
	pos := q.deq.Load()
	s := &q.slots[pos%q.size]
	if int64(s.seq.Load()-(pos+1)) < 0 {
		return q.empty
	}
	v := s.val
	s.val = q.empty
	s.seq.Store(pos + q.size)
	q.deq.Store(pos + 1)
	return v
}

// Len is a snapshot of pending values; it may be stale by the time it returns.
func (q *Queue[T]) Len() int {
	n := int64(q.enq.Load() - q.deq.Load())
	if n < 0 {
		return 0
	}
	if n > int64(q.size) {
		return int(q.size)
	}
	return int(n)
}

func (q *Queue[T]) Cap() int { return int(q.size) }

// Accepted counts successful enqueues over the queue's lifetime.
func (q *Queue[T]) Accepted() uint64 { return q.accepted.Load() }

// Dropped counts enqueues rejected because the queue was full.
func (q *Queue[T]) Dropped() uint64 { return q.dropped.Load() }
