package testutils

import (
	"os"
	"testing"
)

// TempFile creates a temporary file with content for testing
func TempFile(t *testing.T, pattern, content string) string {
	file, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	if content != "" {
		if _, err := file.WriteString(content); err != nil {
			file.Close()
			t.Fatalf("Failed to write to temp file: %v", err)
		}
	}

	filename := file.Name()
	file.Close()
	return filename
}

// CreateTestCSVFile creates a flight-log CSV file with test data
func CreateTestCSVFile(t *testing.T) string {
	csvContent := `timestamp,latitude,longitude,trackStatus,altitude,groundSpeed,heading,batteryLevel,sn,flightCode
2026-03-14T10:00:00Z,31.2304,121.4737,on_course,120.5,15.2,270,88,UAS-0042,FC-1001
2026-03-14T10:00:01Z,31.2306,121.4741,on_course,121.0,15.4,268,87.5,UAS-0042,FC-1001
2026-03-14T10:00:02Z,31.2308,121.4745,returning,121.2,14.8,95,87,UAS-0042,FC-1001`

	return TempFile(t, "flight-*.csv", csvContent)
}

// ValidPayload returns a minimal valid telemetry payload for tests
func ValidPayload() map[string]interface{} {
	return map[string]interface{}{
		"timestamp":   "2026-03-14T10:00:00Z",
		"latitude":    31.2304,
		"longitude":   121.4737,
		"trackStatus": "on_course",
	}
}
