package common

import (
	"github.com/google/uuid"
)

// NewConnectionID generates a unique connection ID with the "conn_" prefix
// Format: conn_<uuid>
func NewConnectionID() string {
	return "conn_" + uuid.New().String()
}
