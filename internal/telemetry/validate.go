package telemetry

import (
	"fmt"
	"math"
	"strings"
)

var requiredFields = []string{"timestamp", "latitude", "longitude", "trackStatus"}

// optionalNumeric is an optional field constrained to [min, max] when
// bounded is true. Checked in declaration order so error output is stable.
type optionalNumeric struct {
	name     string
	bounded  bool
	min, max float64
}

// optional numeric fields and their range checks; absence is always valid.
var optionalNumericFields = []optionalNumeric{
	{name: "altitude"},
	{name: "groundSpeed"},
	{name: "heading"},
	{name: "height"},
	{name: "verticalSpeed"},
	{name: "course"},
	{name: "batteryLevel", bounded: true, min: 0, max: 100},
	{name: "batteryVoltage"},
	{name: "batteryTemperature"},
	{name: "temperature"},
	{name: "humidity", bounded: true, min: 0, max: 100},
	{name: "windSpeed"},
	{name: "windDirection"},
	{name: "visibility"},
	{name: "pressure"},
}

// Validate checks a decoded payload against the telemetry contract and, when
// every constraint holds, builds the typed Record. Violations accumulate: a
// payload missing two required fields yields two errors, never one. Validate
// has no side effects and is safe for concurrent use.
func Validate(raw map[string]interface{}) (Record, []string) {
	var errs []string

	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			errs = append(errs, fmt.Sprintf("Missing required field: %s", field))
		}
	}

	ts, tsOK := ParseTimestamp(raw["timestamp"])
	if _, present := raw["timestamp"]; present && !tsOK {
		errs = append(errs, "timestamp must be a valid ISO-8601 string or epoch milliseconds.")
	}

	lat, latOK := finiteNumber(raw["latitude"])
	if _, present := raw["latitude"]; present && (!latOK || lat < -90 || lat > 90) {
		errs = append(errs, "latitude must be a number between -90 and 90.")
	}

	lon, lonOK := finiteNumber(raw["longitude"])
	if _, present := raw["longitude"]; present && (!lonOK || lon < -180 || lon > 180) {
		errs = append(errs, "longitude must be a number between -180 and 180.")
	}

	status, statusOK := raw["trackStatus"].(string)
	if _, present := raw["trackStatus"]; present && (!statusOK || strings.TrimSpace(status) == "") {
		errs = append(errs, "trackStatus must be a non-empty string.")
	}

	numerics := make(map[string]*float64)
	for _, field := range optionalNumericFields {
		value, present := raw[field.name]
		if !present {
			continue
		}
		n, ok := finiteNumber(value)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s must be a number when provided.", field.name))
			continue
		}
		if field.bounded && (n < field.min || n > field.max) {
			errs = append(errs, fmt.Sprintf("%s must be between %g and %g when provided.", field.name, field.min, field.max))
			continue
		}
		v := n
		numerics[field.name] = &v
	}

	if len(errs) > 0 {
		return Record{}, errs
	}

	rec := Record{
		Timestamp:   ts,
		Latitude:    lat,
		Longitude:   lon,
		TrackStatus: status,

		Altitude:           numerics["altitude"],
		GroundSpeed:        numerics["groundSpeed"],
		Heading:            numerics["heading"],
		Height:             numerics["height"],
		VerticalSpeed:      numerics["verticalSpeed"],
		Course:             numerics["course"],
		BatteryLevel:       numerics["batteryLevel"],
		BatteryVoltage:     numerics["batteryVoltage"],
		BatteryTemperature: numerics["batteryTemperature"],
		Temperature:        numerics["temperature"],
		Humidity:           numerics["humidity"],
		WindSpeed:          numerics["windSpeed"],
		WindDirection:      numerics["windDirection"],
		Visibility:         numerics["visibility"],
		Pressure:           numerics["pressure"],

		OrderID:        stringField(raw, "orderId"),
		SN:             stringField(raw, "sn"),
		FlightCode:     stringField(raw, "flightCode"),
		ManufacturerID: stringField(raw, "manufacturerId"),
		CoordinateType: stringField(raw, "coordinateType"),
		HeightType:     stringField(raw, "heightType"),
		BatteryStatus:  stringField(raw, "batteryStatus"),

		Raw: raw,
	}

	return rec, nil
}

// finiteNumber extracts a finite float64 from a decoded JSON value.
func finiteNumber(value interface{}) (float64, bool) {
	n, ok := value.(float64)
	if !ok {
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func stringField(raw map[string]interface{}, key string) string {
	s, _ := raw[key].(string)
	return s
}
