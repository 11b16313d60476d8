package telemetry

import (
	"encoding/json"
	"math"
	"time"
)

// Record is a single validated UAS status report. Optional measurements are
// nil when the producer did not send them; identity tags are empty strings
// when absent.
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	TrackStatus string    `json:"trackStatus"`

	Altitude           *float64 `json:"altitude,omitempty"`
	GroundSpeed        *float64 `json:"groundSpeed,omitempty"`
	Heading            *float64 `json:"heading,omitempty"`
	Height             *float64 `json:"height,omitempty"`
	VerticalSpeed      *float64 `json:"verticalSpeed,omitempty"`
	Course             *float64 `json:"course,omitempty"`
	BatteryLevel       *float64 `json:"batteryLevel,omitempty"`
	BatteryVoltage     *float64 `json:"batteryVoltage,omitempty"`
	BatteryTemperature *float64 `json:"batteryTemperature,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	Humidity           *float64 `json:"humidity,omitempty"`
	WindSpeed          *float64 `json:"windSpeed,omitempty"`
	WindDirection      *float64 `json:"windDirection,omitempty"`
	Visibility         *float64 `json:"visibility,omitempty"`
	Pressure           *float64 `json:"pressure,omitempty"`

	OrderID        string `json:"orderId,omitempty"`
	SN             string `json:"sn,omitempty"`
	FlightCode     string `json:"flightCode,omitempty"`
	ManufacturerID string `json:"manufacturerId,omitempty"`
	CoordinateType string `json:"coordinateType,omitempty"`
	HeightType     string `json:"heightType,omitempty"`
	BatteryStatus  string `json:"batteryStatus,omitempty"`

	// Raw keeps the original payload so unknown producer fields survive the
	// trip through the pipeline.
	Raw map[string]interface{} `json:"-"`
}

// Message is the consumer-facing projection of a Record, grouped the way the
// dashboard consumes it.
type Message struct {
	Timestamp   string       `json:"timestamp"`
	Coordinates Coordinates  `json:"coordinates"`
	TrackStatus string       `json:"trackStatus"`
	Motion      *Motion      `json:"motion,omitempty"`
	Identifiers *Identifiers `json:"identifiers,omitempty"`
	Power       *Power       `json:"power,omitempty"`
	Weather     *Weather     `json:"weather,omitempty"`
}

type Coordinates struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

type Motion struct {
	GroundSpeed *float64 `json:"groundSpeed,omitempty"`
	Heading     *float64 `json:"heading,omitempty"`
}

type Identifiers struct {
	FlightCode     string `json:"flightCode,omitempty"`
	ManufacturerID string `json:"manufacturerId,omitempty"`
	OrderID        string `json:"orderId,omitempty"`
	SN             string `json:"sn,omitempty"`
}

type Power struct {
	Level       *float64 `json:"level,omitempty"`
	Voltage     *float64 `json:"voltage,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Status      string   `json:"status,omitempty"`
}

type Weather struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
	WindSpeed     *float64 `json:"windSpeed,omitempty"`
	WindDirection *float64 `json:"windDirection,omitempty"`
	Visibility    *float64 `json:"visibility,omitempty"`
	Pressure      *float64 `json:"pressure,omitempty"`
}

// Broadcast derives the consumer projection for a record. The derivation is
// deterministic; empty groups are dropped so subscribers never see empty
// objects.
func (r Record) Broadcast() Message {
	msg := Message{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		Coordinates: Coordinates{
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Altitude:  r.Altitude,
		},
		TrackStatus: r.TrackStatus,
	}

	if r.GroundSpeed != nil || r.Heading != nil {
		msg.Motion = &Motion{GroundSpeed: r.GroundSpeed, Heading: r.Heading}
	}

	if r.FlightCode != "" || r.ManufacturerID != "" || r.OrderID != "" || r.SN != "" {
		msg.Identifiers = &Identifiers{
			FlightCode:     r.FlightCode,
			ManufacturerID: r.ManufacturerID,
			OrderID:        r.OrderID,
			SN:             r.SN,
		}
	}

	if r.BatteryLevel != nil || r.BatteryVoltage != nil || r.BatteryTemperature != nil || r.BatteryStatus != "" {
		msg.Power = &Power{
			Level:       r.BatteryLevel,
			Voltage:     r.BatteryVoltage,
			Temperature: r.BatteryTemperature,
			Status:      r.BatteryStatus,
		}
	}

	if r.Temperature != nil || r.Humidity != nil || r.WindSpeed != nil ||
		r.WindDirection != nil || r.Visibility != nil || r.Pressure != nil {
		msg.Weather = &Weather{
			Temperature:   r.Temperature,
			Humidity:      r.Humidity,
			WindSpeed:     r.WindSpeed,
			WindDirection: r.WindDirection,
			Visibility:    r.Visibility,
			Pressure:      r.Pressure,
		}
	}

	return msg
}

// Marshal marshals a Record to JSON.
func Marshal(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// timestamp string layouts accepted from producers, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp normalizes a producer timestamp: a finite number is epoch
// milliseconds, a string is a calendar date/time in one of the accepted
// layouts. The second return reports whether the value was usable.
func ParseTimestamp(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v)).UTC(), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(f)).UTC(), true
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
