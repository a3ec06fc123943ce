package command

import "sync"

// initialQueueCapacity is the starting capacity of a Queue.
const initialQueueCapacity = 256

// Queue is an unbounded FIFO of shot commands. Enqueue is safe to call from any goroutine; the
// tick drains it once per step so every command is applied whole within a single tick.
type Queue struct {
	shots []Shot
	mu    sync.Mutex
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		shots: make([]Shot, 0, initialQueueCapacity),
	}
}

// Enqueue appends shots to the queue.
func (q *Queue) Enqueue(shots ...Shot) {
	q.mu.Lock()
	q.shots = append(q.shots, shots...)
	q.mu.Unlock()
}

// Drain appends all queued shots to the target slice and resets the queue.
func (q *Queue) Drain(target *[]Shot) {
	q.mu.Lock()
	defer q.mu.Unlock()

	*target = append(*target, q.shots...)
	q.shots = q.shots[:0]
}

// Len returns the number of queued shots.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.shots)
}
