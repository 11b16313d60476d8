package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/example/uastrack/config"
	"github.com/example/uastrack/internal/metrics"
	"github.com/example/uastrack/internal/shared"
)

// SimulatorService replays a recorded flight log onto the telemetry stream,
// acting as a fire-and-forget producer for the ingest service.
type SimulatorService struct {
	queue  shared.MessageQueue
	logger *log.Logger
	config config.Config
}

func NewSimulatorService() *SimulatorService {
	logger := log.New(os.Stdout, "[simulator-service] ", log.LstdFlags)

	metrics.InitMetrics("simulator-service")
	logger.Println("Prometheus metrics initialized")

	cfg := config.Load()

	queue, err := shared.NewRedisStreamQueue(cfg.MsgQueueAddr, cfg.MsgQueueStream, cfg.MsgQueueGroup, "simulator", logger)
	if err != nil {
		logger.Fatalf("Failed to create Redis stream queue: %v", err)
	}
	logger.Printf("Using Redis stream queue at %s, stream=%s", cfg.MsgQueueAddr, cfg.MsgQueueStream)

	return &SimulatorService{
		queue:  queue,
		logger: logger,
		config: cfg,
	}
}

func (ss *SimulatorService) Start() {
	ss.logger.Println("Starting simulator service...")

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})
	http.Handle("/metrics", metrics.MetricsHandler())

	go func() {
		ss.logger.Printf("Starting HTTP server on port %s", ss.config.Port)
		if err := http.ListenAndServe(":"+ss.config.Port, nil); err != nil {
			ss.logger.Printf("HTTP server error: %v", err)
		}
	}()

	delay := time.Duration(ss.config.CSVDelayMs) * time.Millisecond
	if err := ss.StreamCSV(ss.config.CSVPath, delay); err != nil {
		ss.logger.Fatalf("Flight log streaming failed: %v", err)
	}
}

func (ss *SimulatorService) Close() {
	ss.queue.Close()
}

func main() {
	service := NewSimulatorService()
	defer service.Close()
	service.Start()
}
