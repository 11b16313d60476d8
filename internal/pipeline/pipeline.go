// Package pipeline ties validation to the durable-write and broadcast sinks.
package pipeline

import (
	"log"

	"github.com/example/uastrack/internal/telemetry"
)

// RecordWriter persists accepted records.
type RecordWriter interface {
	Write(record telemetry.Record) error
}

// Broadcaster fans accepted records out to live subscribers.
type Broadcaster interface {
	Broadcast(msg telemetry.Message)
}

// Outcome is the result of one ingestion attempt. When Accepted is false,
// Errors carries the accumulated validation messages.
type Outcome struct {
	Accepted bool
	Errors   []string
}

// Pipeline validates inbound payloads and hands accepted records to both
// sinks. The sinks never see each other: a failing or slow write cannot hold
// up a broadcast, and vice versa.
type Pipeline struct {
	writer RecordWriter
	hub    Broadcaster
	logger *log.Logger
}

// New builds a Pipeline. Either sink may be nil, in which case that hand-off
// is skipped (useful in tests).
func New(writer RecordWriter, hub Broadcaster, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{writer: writer, hub: hub, logger: logger}
}

// Ingest validates one payload. On success the record goes to the durable
// writer on its own goroutine (a persistence failure is logged, never
// surfaced) and its projection goes to the hub; the acceptance outcome is
// returned without waiting for either sink.
func (p *Pipeline) Ingest(raw map[string]interface{}) Outcome {
	record, errs := telemetry.Validate(raw)
	if len(errs) > 0 {
		return Outcome{Accepted: false, Errors: errs}
	}

	if p.writer != nil {
		go func() {
			if err := p.writer.Write(record); err != nil {
				p.logger.Printf("Failed to persist telemetry sn=%s: %v", record.SN, err)
			}
		}()
	}

	if p.hub != nil {
		p.hub.Broadcast(record.Broadcast())
	}

	return Outcome{Accepted: true}
}
