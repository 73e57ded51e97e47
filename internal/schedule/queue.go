package schedule

const minQueueCapacity = 16

// ring is a growable FIFO ring buffer of steppables.
type ring struct {
	buf  []Steppable
	head int
	size int
}

func (q *ring) len() int { return q.size }

func (q *ring) push(s Steppable) {
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.size)%len(q.buf)] = s
	q.size++
}

func (q *ring) pop() Steppable {
	if q.size == 0 {
		return nil
	}
	s := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return s
}

func (q *ring) clear() {
	for i := range q.buf {
		q.buf[i] = nil
	}
	q.head = 0
	q.size = 0
}

func (q *ring) grow() {
	capacity := len(q.buf) * 2
	if capacity < minQueueCapacity {
		capacity = minQueueCapacity
	}
	buf := make([]Steppable, capacity)
	for i := 0; i < q.size; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
