package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant represents a registered chat participant. LastStatus is the
// last-known activity timestamp and decides eviction by the sweeper.
type Participant struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	LastStatus time.Time `json:"lastStatus"`
}
