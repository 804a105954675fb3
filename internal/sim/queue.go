package sim

// taskQueue is the FIFO of calls ready to run on the next tick.
//
// Only the goroutine driving the Env touches it, so it carries no lock.
type taskQueue struct {
	tasks []*task
}

func newTaskQueue() *taskQueue {
	return &taskQueue{tasks: make([]*task, 0, 8)}
}

// Push adds t to the back of the queue.
func (q *taskQueue) Push(t *task) {
	q.tasks = append(q.tasks, t)
}

// Drain removes and returns every queued task in FIFO order.
// Tasks pushed after Drain wait for the next call.
func (q *taskQueue) Drain() []*task {
	if len(q.tasks) == 0 {
		return nil
	}
	batch := q.tasks
	q.tasks = make([]*task, 0, cap(batch))
	return batch
}

// Len returns the number of queued tasks.
func (q *taskQueue) Len() int {
	return len(q.tasks)
}
