package models

// Broadcast is the reserved recipient meaning "all participants".
const Broadcast = "Todos"

// Message types.
const (
	TypePublic  = "message"
	TypePrivate = "private_message"
	TypeStatus  = "status"
)

// TimeLayout is the wall-clock format messages carry. There is no date
// component, so ordering across midnight is ambiguous.
const TimeLayout = "15:04:05"

// Message represents an immutable chat message.
type Message struct {
	ID   string `json:"id"` // ULID
	From string `json:"from"`
	To   string `json:"to"` // participant name or Broadcast
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"` // HH:MM:SS, server local time
}
