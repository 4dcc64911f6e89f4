package queue

import "context"

// Delivery is a consumed job awaiting acknowledgement
type Delivery interface {
	GetJob() *Job
	// Redelivered reports whether the broker handed this job out before
	Redelivered() bool
	Ack() error
	// Nack without requeue dead-letters the job
	Nack(requeue bool) error
}

// Publisher enqueues import jobs
type Publisher interface {
	Enqueue(ctx context.Context, job *Job) error
}

// JobQueue is a broker connection that publishes and consumes import jobs.
// Consumers must Ack or Nack every message they receive.
type JobQueue interface {
	Publisher
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)
	HealthCheck(ctx context.Context) error
	Close() error
}
