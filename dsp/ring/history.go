package ring

// History is a circular buffer of the most recent values written to it.
//
// History is not safe for concurrent use.
type History[T any] struct {
	buf  []T
	fill T
	pos  int
}

// New returns a History holding capacity values, all set to fill.
// A capacity below 1 is raised to 1.
func New[T any](capacity int, fill T) *History[T] {
	if capacity < 1 {
		capacity = 1
	}

	h := &History[T]{
		buf:  make([]T, capacity),
		fill: fill,
	}
	for i := range h.buf {
		h.buf[i] = fill
	}

	return h
}

// Len returns the fixed capacity.
func (h *History[T]) Len() int {
	return len(h.buf)
}

// Write advances the cursor and stores v in the oldest slot.
func (h *History[T]) Write(v T) {
	h.pos++
	if h.pos >= len(h.buf) {
		h.pos = 0
	}

	h.buf[h.pos] = v
}

// Current returns the most recently written value.
func (h *History[T]) Current() T {
	return h.buf[h.pos]
}

// Previous returns the value written delay steps before the most recent one.
// Previous(0) is Current. Delays wrap modulo the capacity, so Previous(Len())
// is also Current.
func (h *History[T]) Previous(delay int) T {
	n := len(h.buf)
	idx := (h.pos - delay%n) % n
	if idx < 0 {
		idx += n
	}

	return h.buf[idx]
}

// Samples returns the last min(count, Len()) values, most recent first.
func (h *History[T]) Samples(count int) []T {
	return h.SamplesInto(make([]T, h.clampCount(count)))
}

// SamplesInto fills dst with the most recent values, newest first, and
// returns dst truncated to min(len(dst), Len()). Zero-alloc.
func (h *History[T]) SamplesInto(dst []T) []T {
	dst = dst[:h.clampCount(len(dst))]

	idx := h.pos
	for i := range dst {
		dst[i] = h.buf[idx]
		if idx == 0 {
			idx = len(h.buf)
		}
		idx--
	}

	return dst
}

// Values returns the whole history, most recent first.
func (h *History[T]) Values() []T {
	return h.Samples(len(h.buf))
}

// Clear resets every slot to the fill value without moving the cursor.
func (h *History[T]) Clear() {
	for i := range h.buf {
		h.buf[i] = h.fill
	}
}

// Reset clears the history and rewinds the cursor to its initial slot.
func (h *History[T]) Reset() {
	h.Clear()
	h.pos = 0
}

func (h *History[T]) clampCount(count int) int {
	if count < 0 {
		return 0
	}
	if count > len(h.buf) {
		return len(h.buf)
	}

	return count
}
