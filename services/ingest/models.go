package main

// AcceptedData carries the acceptance note returned to producers
type AcceptedData struct {
	Message string `json:"message" example:"Telemetry accepted for processing"`
}

// IngestResponse is returned when a telemetry payload is accepted
type IngestResponse struct {
	Success bool         `json:"success" example:"true"`
	Code    int          `json:"code" example:"0"`
	Data    AcceptedData `json:"data"`
}

// ErrorResponse is returned for malformed or invalid payloads
type ErrorResponse struct {
	Success   bool   `json:"success" example:"false"`
	ErrorCode string `json:"errorCode" example:"VALIDATION_ERROR"`
	ErrorMsg  string `json:"errorMsg" example:"latitude must be a number between -90 and 90."`
}
