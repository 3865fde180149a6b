package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher lazily manages one writer per topic.
type KafkaPublisher struct {
	workoutTopic    string
	assignmentTopic string
	newWriter       func(topic string) messageWriter

	mu      sync.Mutex
	writers map[string]messageWriter
}

// NewKafkaPublisher creates a KafkaPublisher writing to brokers.
func NewKafkaPublisher(brokers []string, workoutTopic, assignmentTopic string) *KafkaPublisher {
	return newKafkaPublisher(workoutTopic, assignmentTopic, func(topic string) messageWriter {
		return &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Compression:            kafka.Snappy,
			AllowAutoTopicCreation: true,
		}
	})
}

func newKafkaPublisher(workoutTopic, assignmentTopic string, newWriter func(string) messageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		workoutTopic:    workoutTopic,
		assignmentTopic: assignmentTopic,
		newWriter:       newWriter,
		writers:         make(map[string]messageWriter),
	}
}

// WorkoutFinished publishes evt keyed by user, so a user's workouts stay ordered.
func (p *KafkaPublisher) WorkoutFinished(ctx context.Context, evt WorkoutFinished) error {
	return p.publish(ctx, p.workoutTopic, evt.UserID, evt)
}

// AssignmentCompleted publishes evt keyed by assignment.
func (p *KafkaPublisher) AssignmentCompleted(ctx context.Context, evt AssignmentCompleted) error {
	return p.publish(ctx, p.assignmentTopic, evt.AssignmentID, evt)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := p.writerForTopic(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) writerForTopic(topic string) messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}
	writer := p.newWriter(topic)
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
