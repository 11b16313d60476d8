package telemetry

import (
	"strings"
	"testing"
	"time"
)

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"timestamp":   "2026-03-14T10:00:00Z",
		"latitude":    31.2304,
		"longitude":   121.4737,
		"trackStatus": "on_course",
	}
}

func TestValidateRequiredFields(t *testing.T) {
	t.Run("Valid Minimal Payload", func(t *testing.T) {
		rec, errs := Validate(validPayload())
		if len(errs) != 0 {
			t.Fatalf("Expected no errors, got %v", errs)
		}
		if rec.Latitude != 31.2304 {
			t.Errorf("Expected latitude 31.2304, got %f", rec.Latitude)
		}
		if rec.Longitude != 121.4737 {
			t.Errorf("Expected longitude 121.4737, got %f", rec.Longitude)
		}
		if rec.TrackStatus != "on_course" {
			t.Errorf("Expected trackStatus 'on_course', got '%s'", rec.TrackStatus)
		}
		want := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
		if !rec.Timestamp.Equal(want) {
			t.Errorf("Expected timestamp %v, got %v", want, rec.Timestamp)
		}
	})

	t.Run("Missing Fields Accumulate", func(t *testing.T) {
		payload := map[string]interface{}{
			"latitude":  31.2304,
			"longitude": 121.4737,
		}
		_, errs := Validate(payload)
		if len(errs) != 2 {
			t.Fatalf("Expected 2 errors, got %d: %v", len(errs), errs)
		}
		joined := strings.Join(errs, "; ")
		if !strings.Contains(joined, "timestamp") {
			t.Errorf("Expected an error naming timestamp, got %v", errs)
		}
		if !strings.Contains(joined, "trackStatus") {
			t.Errorf("Expected an error naming trackStatus, got %v", errs)
		}
	})

	t.Run("Empty Payload Reports Every Required Field", func(t *testing.T) {
		_, errs := Validate(map[string]interface{}{})
		if len(errs) != 4 {
			t.Fatalf("Expected 4 errors, got %d: %v", len(errs), errs)
		}
	})
}

func TestValidateTimestamp(t *testing.T) {
	t.Run("Epoch Milliseconds", func(t *testing.T) {
		payload := validPayload()
		payload["timestamp"] = float64(1773482400000)
		rec, errs := Validate(payload)
		if len(errs) != 0 {
			t.Fatalf("Expected no errors, got %v", errs)
		}
		if rec.Timestamp.UnixMilli() != 1773482400000 {
			t.Errorf("Expected epoch ms preserved, got %d", rec.Timestamp.UnixMilli())
		}
	})

	t.Run("Unparseable String", func(t *testing.T) {
		payload := validPayload()
		payload["timestamp"] = "not a date"
		_, errs := Validate(payload)
		if len(errs) != 1 {
			t.Fatalf("Expected 1 error, got %v", errs)
		}
	})

	t.Run("Boolean Rejected", func(t *testing.T) {
		payload := validPayload()
		payload["timestamp"] = true
		_, errs := Validate(payload)
		if len(errs) != 1 {
			t.Fatalf("Expected 1 error, got %v", errs)
		}
	})
}

func TestValidateCoordinates(t *testing.T) {
	cases := []struct {
		name  string
		field string
		value float64
		valid bool
	}{
		{"Latitude 90 Inclusive", "latitude", 90, true},
		{"Latitude -90 Inclusive", "latitude", -90, true},
		{"Latitude 91 Rejected", "latitude", 91, false},
		{"Latitude -91 Rejected", "latitude", -91, false},
		{"Longitude 180 Inclusive", "longitude", 180, true},
		{"Longitude -180 Inclusive", "longitude", -180, true},
		{"Longitude 181 Rejected", "longitude", 181, false},
		{"Longitude -181 Rejected", "longitude", -181, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := validPayload()
			payload[tc.field] = tc.value
			_, errs := Validate(payload)
			if tc.valid && len(errs) != 0 {
				t.Errorf("Expected %s=%g to be valid, got %v", tc.field, tc.value, errs)
			}
			if !tc.valid && len(errs) != 1 {
				t.Errorf("Expected exactly 1 error for %s=%g, got %v", tc.field, tc.value, errs)
			}
		})
	}

	t.Run("Latitude As String Rejected", func(t *testing.T) {
		payload := validPayload()
		payload["latitude"] = "31.2"
		_, errs := Validate(payload)
		if len(errs) != 1 {
			t.Fatalf("Expected 1 error, got %v", errs)
		}
	})
}

func TestValidateTrackStatus(t *testing.T) {
	t.Run("Whitespace Only Rejected", func(t *testing.T) {
		payload := validPayload()
		payload["trackStatus"] = "   "
		_, errs := Validate(payload)
		if len(errs) != 1 {
			t.Fatalf("Expected 1 error, got %v", errs)
		}
	})

	t.Run("Non-String Rejected", func(t *testing.T) {
		payload := validPayload()
		payload["trackStatus"] = 5.0
		_, errs := Validate(payload)
		if len(errs) != 1 {
			t.Fatalf("Expected 1 error, got %v", errs)
		}
	})
}

func TestValidateOptionalFields(t *testing.T) {
	t.Run("Absent Is Always Valid", func(t *testing.T) {
		_, errs := Validate(validPayload())
		if len(errs) != 0 {
			t.Fatalf("Expected no errors, got %v", errs)
		}
	})

	t.Run("Present Numerics Carried Over", func(t *testing.T) {
		payload := validPayload()
		payload["altitude"] = 120.5
		payload["groundSpeed"] = 15.2
		payload["heading"] = 270.0
		payload["batteryLevel"] = 88.0
		rec, errs := Validate(payload)
		if len(errs) != 0 {
			t.Fatalf("Expected no errors, got %v", errs)
		}
		if rec.Altitude == nil || *rec.Altitude != 120.5 {
			t.Errorf("Expected altitude 120.5, got %v", rec.Altitude)
		}
		if rec.GroundSpeed == nil || *rec.GroundSpeed != 15.2 {
			t.Errorf("Expected groundSpeed 15.2, got %v", rec.GroundSpeed)
		}
		if rec.Heading == nil || *rec.Heading != 270.0 {
			t.Errorf("Expected heading 270, got %v", rec.Heading)
		}
		if rec.BatteryLevel == nil || *rec.BatteryLevel != 88.0 {
			t.Errorf("Expected batteryLevel 88, got %v", rec.BatteryLevel)
		}
	})

	t.Run("Non-Numeric Optional Rejected", func(t *testing.T) {
		payload := validPayload()
		payload["altitude"] = "high"
		_, errs := Validate(payload)
		if len(errs) != 1 {
			t.Fatalf("Expected 1 error, got %v", errs)
		}
		if !strings.Contains(errs[0], "altitude") {
			t.Errorf("Expected error naming altitude, got %v", errs)
		}
	})

	t.Run("Battery Level Range", func(t *testing.T) {
		for _, v := range []float64{0, 100} {
			payload := validPayload()
			payload["batteryLevel"] = v
			if _, errs := Validate(payload); len(errs) != 0 {
				t.Errorf("Expected batteryLevel %g to be valid, got %v", v, errs)
			}
		}
		for _, v := range []float64{-1, 101} {
			payload := validPayload()
			payload["batteryLevel"] = v
			if _, errs := Validate(payload); len(errs) != 1 {
				t.Errorf("Expected batteryLevel %g to be rejected", v)
			}
		}
	})

	t.Run("Humidity Range", func(t *testing.T) {
		payload := validPayload()
		payload["humidity"] = 101.0
		if _, errs := Validate(payload); len(errs) != 1 {
			t.Errorf("Expected humidity 101 to be rejected")
		}
	})

	t.Run("Multiple Violations Accumulate", func(t *testing.T) {
		payload := validPayload()
		payload["latitude"] = 95.0
		payload["batteryLevel"] = 150.0
		payload["windSpeed"] = "fast"
		_, errs := Validate(payload)
		if len(errs) != 3 {
			t.Fatalf("Expected 3 errors, got %d: %v", len(errs), errs)
		}
	})
}

func TestValidateIdentityTags(t *testing.T) {
	payload := validPayload()
	payload["orderId"] = "ORD-77"
	payload["sn"] = "UAS-0042"
	payload["flightCode"] = "FC-1001"
	payload["manufacturerId"] = "MFG-9"
	payload["coordinateType"] = "WGS84"
	payload["heightType"] = "relative"
	payload["customField"] = "kept"

	rec, errs := Validate(payload)
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}
	if rec.OrderID != "ORD-77" || rec.SN != "UAS-0042" || rec.FlightCode != "FC-1001" {
		t.Errorf("Identity tags not carried over: %+v", rec)
	}
	if rec.ManufacturerID != "MFG-9" || rec.CoordinateType != "WGS84" || rec.HeightType != "relative" {
		t.Errorf("Identity tags not carried over: %+v", rec)
	}
	if rec.Raw["customField"] != "kept" {
		t.Errorf("Expected unknown fields to pass through in Raw")
	}
}
