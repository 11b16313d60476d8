package mocks

import (
	"context"
	"sync"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MockPointWriter is a mock implementation of the InfluxDB blocking write API
// for testing retry behavior.
type MockPointWriter struct {
	mu        sync.Mutex
	points    []*write.Point
	attempts  int
	failFirst int
	err       error
}

// NewMockPointWriter creates a new mock point writer
func NewMockPointWriter() *MockPointWriter {
	return &MockPointWriter{}
}

// SetError makes every write fail with err
func (m *MockPointWriter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FailFirst makes the first n writes fail with err, then succeed
func (m *MockPointWriter) FailFirst(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFirst = n
	m.err = err
}

// WritePoint implements the PointWriter interface
func (m *MockPointWriter) WritePoint(_ context.Context, points ...*write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++
	if m.failFirst > 0 {
		if m.attempts <= m.failFirst {
			return m.err
		}
	} else if m.err != nil {
		return m.err
	}

	m.points = append(m.points, points...)
	return nil
}

// Attempts returns the number of write attempts observed
func (m *MockPointWriter) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Points returns the points that were written successfully
func (m *MockPointWriter) Points() []*write.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*write.Point, len(m.points))
	copy(out, m.points)
	return out
}

// Reset clears all data and resets the mock
func (m *MockPointWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = nil
	m.attempts = 0
	m.failFirst = 0
	m.err = nil
}

// MockMessageQueue is a mock implementation of shared.MessageQueue for testing
type MockMessageQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	queued    []queuedMessage
	err       error
	closed    bool
}

type queuedMessage struct {
	topic string
	body  []byte
	id    string
}

// NewMockMessageQueue creates a new mock message queue
func NewMockMessageQueue() *MockMessageQueue {
	return &MockMessageQueue{published: make(map[string][][]byte)}
}

// SetError sets the error that the mock should return
func (m *MockMessageQueue) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// AddMessage queues a message for delivery by Subscribe
func (m *MockMessageQueue) AddMessage(topic string, body []byte, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, queuedMessage{topic: topic, body: body, id: id})
}

// Publish implements shared.MessageQueue
func (m *MockMessageQueue) Publish(topic string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published[topic] = append(m.published[topic], body)
	return nil
}

// Subscribe delivers every queued message to the handler, then returns.
// Unlike the real queue it does not block, which keeps tests synchronous.
func (m *MockMessageQueue) Subscribe(handler func(topic string, body []byte, id string) error) error {
	m.mu.Lock()
	msgs := m.queued
	m.queued = nil
	err := m.err
	m.mu.Unlock()

	if err != nil {
		return err
	}
	for _, msg := range msgs {
		handler(msg.topic, msg.body, msg.id)
	}
	return nil
}

// Close implements shared.MessageQueue
func (m *MockMessageQueue) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.err
}

// Published returns the bodies published to a topic
func (m *MockMessageQueue) Published(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published[topic]
}

// IsClosed returns whether the queue was closed
func (m *MockMessageQueue) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
