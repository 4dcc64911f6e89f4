package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is an import job consumed from RabbitMQ
type Message struct {
	Job         *Job
	DeliveryTag uint64
	Channel     *amqp.Channel
	redelivered bool
}

// GetJob returns the decoded job
func (m *Message) GetJob() *Job {
	return m.Job
}

// Redelivered implements Delivery
func (m *Message) Redelivered() bool {
	return m.redelivered
}

// Ack removes the job from the queue
func (m *Message) Ack() error {
	return m.Channel.Ack(m.DeliveryTag, false)
}

// Nack rejects the job; without requeue the queue dead-letters it
func (m *Message) Nack(requeue bool) error {
	return m.Channel.Nack(m.DeliveryTag, false, requeue)
}

var _ Delivery = (*Message)(nil)
