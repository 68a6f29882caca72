package logging

import "github.com/google/uuid"

// NewRequestID generates a correlation ID attached to the diagnostic log
// entries of one request. The JSON-RPC id is client-chosen and may repeat;
// this one never does.
func NewRequestID() string {
	return uuid.New().String()
}
