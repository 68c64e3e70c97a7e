package events

import (
	"time"
)

// Source identifica a este servicio como productor de eventos.
const Source = "execution-service"

// Envelope es la unidad que viaja por el transporte. El EventID se genera
// al publicar y es la clave de idempotencia del lado consumidor.
type Envelope struct {
	EventID   string         `json:"eventId"`
	EventType string         `json:"eventType"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Payload   map[string]any `json:"payload"`
}

// PartitionKey agrupa los eventos de un mismo tipo en la misma partición.
func (e *Envelope) PartitionKey() string {
	return e.EventType
}
