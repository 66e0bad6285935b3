// Package ramp generates the triangular duty-cycle wave used for breathing.
package ramp

import "golang.org/x/exp/constraints"

// Triangle advances one fixed step per call between 0 and Max, reversing
// at each bound. A step that would overshoot lands exactly on the bound.
type Triangle[T constraints.Integer] struct {
	step   T
	max    T
	level  T
	rising bool
}

// NewTriangle panics unless 0 < step and 0 < max.
func NewTriangle[T constraints.Integer](step, max T) *Triangle[T] {
	if step <= 0 || max <= 0 {
		panic("ramp: step and max must be positive")
	}
	return &Triangle[T]{step: step, max: max, rising: true}
}

// Reset restarts the wave at 0, rising.
func (r *Triangle[T]) Reset() {
	r.level = 0
	r.rising = true
}

// Seed places the wave at level, clamped to [0, Max], moving in the given
// direction.
func (r *Triangle[T]) Seed(level T, rising bool) {
	r.level = Clamp(level, 0, r.max)
	r.rising = rising
}

// Next moves one step and returns the new level.
func (r *Triangle[T]) Next() T {
	if r.rising {
		if r.max-r.level <= r.step {
			r.level = r.max
			r.rising = false
		} else {
			r.level += r.step
		}
		return r.level
	}
	if r.level <= r.step {
		r.level = 0
		r.rising = true
	} else {
		r.level -= r.step
	}
	return r.level
}

func (r *Triangle[T]) Level() T { return r.level }

func (r *Triangle[T]) Rising() bool { return r.rising }

func (r *Triangle[T]) Max() T { return r.max }

// Period is the number of ticks for one full cycle starting from 0.
func (r *Triangle[T]) Period() int {
	return 2 * int(CeilDiv(r.max, r.step))
}

// CeilDiv returns ceil(a/b) for positive values, 0 when b is 0.
func CeilDiv[T constraints.Integer](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
