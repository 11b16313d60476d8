package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/example/uastrack/internal/metrics"
)

// flight log CSV column order
var csvColumns = []string{
	"timestamp", "latitude", "longitude", "trackStatus",
	"altitude", "groundSpeed", "heading", "batteryLevel", "sn", "flightCode",
}

// numeric columns are published as JSON numbers so the ingest validator
// accepts them; the rest stay strings.
var numericColumns = map[string]bool{
	"latitude":     true,
	"longitude":    true,
	"altitude":     true,
	"groundSpeed":  true,
	"heading":      true,
	"batteryLevel": true,
}

// StreamCSV replays a flight log CSV onto the queue, one telemetry JSON
// object per row, looping back to the start at EOF.
func (ss *SimulatorService) StreamCSV(filePath string, delay time.Duration) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	recordCount := 0
	ss.logger.Printf("Starting flight log replay with %v delay between records", delay)

	// Skip the header row on first read
	skipHeader := true

	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				ss.logger.Printf("Reached end of flight log, restarting from beginning (%d records so far)", recordCount)
				if _, err := f.Seek(0, io.SeekStart); err != nil {
					return err
				}
				r = csv.NewReader(f)
				skipHeader = true
				continue
			}
			return err
		}

		if skipHeader {
			skipHeader = false
			continue
		}

		if len(rec) < len(csvColumns) {
			ss.logger.Printf("Skipping incomplete record (only %d fields)", len(rec))
			continue
		}

		msgBody, err := rowToPayload(rec)
		if err != nil {
			ss.logger.Printf("Failed to marshal record %d: %v", recordCount, err)
			continue
		}

		recordCount++

		if ss.publishWithRetry(msgBody, recordCount) {
			metrics.RecordMessageProduced("simulator-service", ss.config.MsgQueueStream)
		}

		// Log every 10th record to show activity without flooding logs
		if recordCount%10 == 0 {
			ss.logger.Printf("Published record %d: sn=%s ts=%s", recordCount, rec[8], rec[0])
		}

		time.Sleep(delay)
	}
}

// publishWithRetry attempts the publish up to 3 times with linear delay.
func (ss *SimulatorService) publishWithRetry(body []byte, recordCount int) bool {
	const maxRetries = 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := ss.queue.Publish("telemetry", body)
		if err == nil {
			return true
		}
		if attempt == maxRetries-1 {
			ss.logger.Printf("Failed to publish record %d after %d attempts: %v (skipping)", recordCount, maxRetries, err)
			return false
		}
		retryDelay := time.Duration(attempt+1) * time.Second
		ss.logger.Printf("Failed to publish record %d (attempt %d/%d): %v (retrying in %v)",
			recordCount, attempt+1, maxRetries, err, retryDelay)
		time.Sleep(retryDelay)
	}
	return false
}

// rowToPayload converts one CSV row to the telemetry JSON object the ingest
// service expects. Empty cells are omitted rather than sent as zero.
func rowToPayload(rec []string) ([]byte, error) {
	payload := make(map[string]interface{}, len(csvColumns))
	for i, col := range csvColumns {
		cell := rec[i]
		if cell == "" {
			continue
		}
		if numericColumns[col] {
			n, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}
			payload[col] = n
			continue
		}
		payload[col] = cell
	}
	return json.Marshal(payload)
}
