package influx

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/example/uastrack/internal/metrics"
	"github.com/example/uastrack/internal/telemetry"
)

// Measurement is the InfluxDB measurement telemetry points are written under.
const Measurement = "uas_telemetry"

// PointWriter is the slice of the InfluxDB blocking write API the writer
// needs. api.WriteAPIBlocking satisfies it; tests inject a mock.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Options tune the retry behavior of a Writer.
type Options struct {
	// MaxRetries is the number of additional attempts after the first
	// failing write.
	MaxRetries int
	// Backoff is the unit delay; attempt n waits n*Backoff before retrying.
	Backoff time.Duration
	// QueueSize bounds the in-memory retry queue. When full the oldest
	// queued record is dropped to make room.
	QueueSize int
}

func (o *Options) applyDefaults() {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 100 * time.Millisecond
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
}

// Writer persists telemetry records to InfluxDB with bounded retry and an
// in-memory FIFO requeue for records whose retry budget ran out. A later
// write re-triggers draining, so a recovered backend eventually receives
// queued records in order.
type Writer struct {
	client   influxdb2.Client
	writeAPI PointWriter
	opts     Options
	logger   *log.Logger

	mu       sync.Mutex
	queue    []telemetry.Record
	draining bool
}

// NewWriter connects a Writer to an InfluxDB instance. Timestamps are written
// with millisecond precision.
func NewWriter(url, token, org, bucket string, opts Options, logger *log.Logger) *Writer {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetPrecision(time.Millisecond))
	w := newWriter(client.WriteAPIBlocking(org, bucket), opts, logger)
	w.client = client
	return w
}

// NewWriterWithAPI builds a Writer on top of an existing write API. Used by
// tests and by callers managing the client lifecycle themselves.
func NewWriterWithAPI(writeAPI PointWriter, opts Options, logger *log.Logger) *Writer {
	return newWriter(writeAPI, opts, logger)
}

func newWriter(writeAPI PointWriter, opts Options, logger *log.Logger) *Writer {
	opts.applyDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Writer{
		writeAPI: writeAPI,
		opts:     opts,
		logger:   logger,
	}
}

// Write persists one record. On transient backend failure the write is
// retried up to MaxRetries additional times with linearly increasing backoff.
// When every attempt fails the record is appended to the retry queue for
// opportunistic redelivery and the last error is returned; callers must treat
// persistence as eventually consistent, not synchronous.
func (w *Writer) Write(record telemetry.Record) error {
	start := time.Now()
	err := w.writeWithRetry(record)
	if err != nil {
		metrics.RecordDatabaseOperation("ingest-service", "write", "error", time.Since(start))
		w.enqueue(record)
		w.kickDrain()
		return err
	}

	metrics.RecordDatabaseOperation("ingest-service", "write", "success", time.Since(start))
	w.kickDrain()
	return nil
}

// QueueLen reports the number of records awaiting redelivery.
func (w *Writer) QueueLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Close releases the underlying InfluxDB client, if this Writer owns one.
func (w *Writer) Close() {
	if w.client != nil {
		w.client.Close()
	}
}

func (w *Writer) writeWithRetry(record telemetry.Record) error {
	point := BuildPoint(record)

	var lastErr error
	for attempt := 0; attempt <= w.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * w.opts.Backoff)
		}
		lastErr = w.writeAPI.WritePoint(context.Background(), point)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("influx write failed after %d attempts: %w", w.opts.MaxRetries+1, lastErr)
}

func (w *Writer) enqueue(record telemetry.Record) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.queue) >= w.opts.QueueSize {
		dropped := w.queue[0]
		w.queue = w.queue[1:]
		metrics.RecordRetryQueueDrop("ingest-service")
		w.logger.Printf("Retry queue full (%d), dropping oldest record sn=%s ts=%s",
			w.opts.QueueSize, dropped.SN, dropped.Timestamp.Format(time.RFC3339))
	}
	w.queue = append(w.queue, record)
	metrics.SetRetryQueueDepth("ingest-service", float64(len(w.queue)))
}

// kickDrain starts a drain pass unless the queue is empty or a pass is
// already running.
func (w *Writer) kickDrain() {
	w.mu.Lock()
	if w.draining || len(w.queue) == 0 {
		w.mu.Unlock()
		return
	}
	w.draining = true
	w.mu.Unlock()

	go w.drain()
}

// drain re-attempts queued records oldest first. A failing record goes back
// to the front of the queue and the pass stops after one backoff pause, so a
// still-down backend is not hammered in a tight loop.
func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.draining = false
			metrics.SetRetryQueueDepth("ingest-service", 0)
			w.mu.Unlock()
			return
		}
		record := w.queue[0]
		w.queue = w.queue[1:]
		metrics.SetRetryQueueDepth("ingest-service", float64(len(w.queue)))
		w.mu.Unlock()

		start := time.Now()
		if err := w.writeWithRetry(record); err != nil {
			metrics.RecordDatabaseOperation("ingest-service", "requeue_write", "error", time.Since(start))
			w.mu.Lock()
			if len(w.queue) < w.opts.QueueSize {
				w.queue = append([]telemetry.Record{record}, w.queue...)
			} else {
				// A full queue means newer records arrived while this one
				// was in flight; it is the oldest, so it is the one dropped.
				metrics.RecordRetryQueueDrop("ingest-service")
			}
			pending := len(w.queue)
			metrics.SetRetryQueueDepth("ingest-service", float64(pending))
			w.mu.Unlock()

			w.logger.Printf("Retry queue drain halted, %d record(s) pending: %v", pending, err)

			// Hold the draining flag through the pause so a concurrent
			// write cannot start a second pass against a backend that just
			// failed.
			time.Sleep(w.opts.Backoff)
			w.mu.Lock()
			w.draining = false
			w.mu.Unlock()
			return
		}

		metrics.RecordDatabaseOperation("ingest-service", "requeue_write", "success", time.Since(start))
	}
}

// BuildPoint converts a record to its InfluxDB representation: identity
// fields become tags (skipped when empty), measurements become float fields.
// course falls back to heading when the producer only reported heading.
func BuildPoint(record telemetry.Record) *write.Point {
	point := influxdb2.NewPointWithMeasurement(Measurement).
		AddField("latitude", record.Latitude).
		AddField("longitude", record.Longitude).
		SetTime(record.Timestamp)

	addField := func(key string, value *float64) {
		if value != nil {
			point.AddField(key, *value)
		}
	}
	addField("altitude", record.Altitude)
	addField("height", record.Height)
	addField("verticalSpeed", record.VerticalSpeed)
	addField("groundSpeed", record.GroundSpeed)
	addField("heading", record.Heading)
	addField("batteryLevel", record.BatteryLevel)
	addField("batteryVoltage", record.BatteryVoltage)
	addField("batteryTemperature", record.BatteryTemperature)
	addField("temperature", record.Temperature)
	addField("humidity", record.Humidity)
	addField("windSpeed", record.WindSpeed)
	addField("windDirection", record.WindDirection)
	addField("visibility", record.Visibility)
	addField("pressure", record.Pressure)
	if record.Course != nil {
		point.AddField("course", *record.Course)
	} else {
		addField("course", record.Heading)
	}

	addTag := func(key, value string) {
		if value != "" {
			point.AddTag(key, value)
		}
	}
	addTag("orderID", record.OrderID)
	addTag("sn", record.SN)
	addTag("flightCode", record.FlightCode)
	addTag("manufacturerID", record.ManufacturerID)
	addTag("coordinateType", record.CoordinateType)
	addTag("heightType", record.HeightType)

	return point
}
