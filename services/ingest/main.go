package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/example/uastrack/config"
	"github.com/example/uastrack/internal/hub"
	"github.com/example/uastrack/internal/influx"
	"github.com/example/uastrack/internal/metrics"
	"github.com/example/uastrack/internal/pipeline"
	"github.com/example/uastrack/internal/shared"
	_ "github.com/example/uastrack/services/ingest/docs"
)

const serviceName = "ingest-service"

// IngestService wires the producer channels (HTTP and message queue) to the
// pipeline, and exposes the subscriber websocket endpoint.
type IngestService struct {
	cfg      config.Config
	logger   *log.Logger
	pipeline *pipeline.Pipeline
	writer   *influx.Writer
	hub      *hub.Hub
	queue    shared.MessageQueue
}

// @title UAS Telemetry API
// @version 1.0
// @description Ingestion and live-distribution server for UAS telemetry. Producers POST telemetry or publish it to the message stream; subscribers receive validated updates over the websocket endpoint.

// @host localhost:8080
// @BasePath /
func main() {
	logger := log.New(os.Stdout, "[ingest-service] ", log.LstdFlags)

	// Initialize Prometheus metrics
	metrics.InitMetrics(serviceName)
	logger.Println("Prometheus metrics initialized")

	cfg := config.Load()

	writer := influx.NewWriter(cfg.InfluxDBURL, cfg.InfluxDBToken, cfg.InfluxDBOrg, cfg.InfluxDBBucket,
		influx.Options{
			MaxRetries: cfg.WriteMaxRetries,
			Backoff:    time.Duration(cfg.WriteBackoffMs) * time.Millisecond,
			QueueSize:  cfg.RetryQueueSize,
		}, logger)
	logger.Printf("InfluxDB writer ready: %s org=%s bucket=%s", cfg.InfluxDBURL, cfg.InfluxDBOrg, cfg.InfluxDBBucket)

	broadcastHub := hub.New(hub.Options{
		AuthToken:         cfg.WSAuthToken,
		HeartbeatInterval: time.Duration(cfg.WSHeartbeatMs) * time.Millisecond,
		RateLimit:         time.Duration(cfg.WSRateLimitMs) * time.Millisecond,
	}, logger)

	queue, err := shared.NewRedisStreamQueue(cfg.MsgQueueAddr, cfg.MsgQueueStream, cfg.MsgQueueGroup, cfg.MsgQueueConsumerName, logger)
	if err != nil {
		logger.Fatalf("Failed to create Redis stream queue: %v", err)
	}
	logger.Printf("Using Redis stream queue at %s, stream=%s, group=%s, name=%s",
		cfg.MsgQueueAddr, cfg.MsgQueueStream, cfg.MsgQueueGroup, cfg.MsgQueueConsumerName)

	service := &IngestService{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline.New(writer, broadcastHub, logger),
		writer:   writer,
		hub:      broadcastHub,
		queue:    queue,
	}

	service.Start()
}

// Start runs the HTTP server and the queue consumer until interrupted.
func (is *IngestService) Start() {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", metrics.HTTPMiddleware(serviceName, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", metrics.MetricsHandler())

	// Swagger endpoint (public for documentation)
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	mux.HandleFunc("/api/v1/uas/telemetry", metrics.HTTPMiddleware(serviceName, is.handleTelemetry))

	// Subscriber websocket endpoint
	mux.Handle(is.cfg.WSPath, is.hub)

	go func() {
		is.logger.Printf("Starting HTTP server on port %s", is.cfg.Port)
		if err := http.ListenAndServe(":"+is.cfg.Port, mux); err != nil {
			is.logger.Printf("HTTP server error: %v", err)
		}
	}()

	// Consume telemetry from the message stream
	go func() {
		is.logger.Printf("Starting message consumption...")
		if err := is.queue.Subscribe(is.consumeMessage); err != nil {
			is.logger.Printf("Failed to subscribe to message queue: %v", err)
		}
	}()

	is.logger.Println("Ingest service started")
	is.logger.Printf("  POST %-32s - telemetry producer endpoint", "/api/v1/uas/telemetry")
	is.logger.Printf("  GET  %-32s - live telemetry feed (token required)", is.cfg.WSPath)
	is.logger.Printf("  GET  %-32s - health check", "/health")
	is.logger.Printf("  GET  %-32s - Prometheus metrics", "/metrics")
	is.logger.Printf("  GET  %-32s - Swagger UI", "/swagger/")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	is.logger.Println("Shutting down ingest service...")
	is.Close()
}

// Close releases the hub, writer and queue.
func (is *IngestService) Close() {
	is.hub.Close()
	is.writer.Close()
	is.queue.Close()
}

// handleTelemetry godoc
// @Summary Ingest a telemetry report
// @Description Validates one UAS telemetry payload, then persists it and fans it out to live subscribers. Acceptance is acknowledged before persistence completes.
// @Tags telemetry
// @Accept json
// @Produce json
// @Param payload body map[string]interface{} true "Telemetry payload (timestamp, latitude, longitude, trackStatus required)"
// @Success 200 {object} IngestResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/uas/telemetry [post]
func (is *IngestService) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		sendJSON(w, http.StatusBadRequest, ErrorResponse{
			ErrorCode: "INVALID_JSON",
			ErrorMsg:  "Unable to read request body.",
		})
		return
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		metrics.RecordIngest(serviceName, "http", "malformed")
		sendJSON(w, http.StatusBadRequest, ErrorResponse{
			ErrorCode: "INVALID_JSON",
			ErrorMsg:  "Request body is not valid JSON.",
		})
		return
	}

	outcome := is.pipeline.Ingest(raw)
	if !outcome.Accepted {
		metrics.RecordIngest(serviceName, "http", "invalid")
		sendJSON(w, http.StatusBadRequest, ErrorResponse{
			ErrorCode: "VALIDATION_ERROR",
			ErrorMsg:  strings.Join(outcome.Errors, "; "),
		})
		return
	}

	metrics.RecordIngest(serviceName, "http", "accepted")
	sendJSON(w, http.StatusOK, IngestResponse{
		Success: true,
		Code:    0,
		Data:    AcceptedData{Message: "Telemetry accepted for processing"},
	})
}

// consumeMessage ingests one payload from the message stream. There is no
// acknowledgement channel back to this kind of producer, so malformed and
// invalid payloads are logged and dropped (acked) rather than retried.
func (is *IngestService) consumeMessage(topic string, body []byte, id string) error {
	start := time.Now()
	metrics.RecordMessageConsumed(serviceName, topic)
	defer func() {
		metrics.RecordMessageProcessing(serviceName, topic, time.Since(start))
	}()

	if len(body) == 0 {
		is.logger.Printf("Skipped empty message body for id %s", id)
		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		metrics.RecordIngest(serviceName, "queue", "malformed")
		is.logger.Printf("Dropped malformed telemetry message id %s: %v", id, err)
		return nil
	}

	outcome := is.pipeline.Ingest(raw)
	if !outcome.Accepted {
		metrics.RecordIngest(serviceName, "queue", "invalid")
		is.logger.Printf("Dropped invalid telemetry message id %s: %s", id, strings.Join(outcome.Errors, "; "))
		return nil
	}

	metrics.RecordIngest(serviceName, "queue", "accepted")
	return nil
}

func sendJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
