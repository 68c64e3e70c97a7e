package bus

import "context"

type Keyer interface {
	PartitionKey() string
}

// EventPublisher construye el envelope y lo entrega al transporte.
// La semántica de topic y formato del payload la decides en los adapters.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]any) error
}

// Message es un mensaje recibido del transporte. Receipt es opaco y lo
// interpreta el adapter que lo produjo (offset kafka, handle de cola...).
type Message struct {
	Key     string
	Body    []byte
	Receipt any
}

// MessageSource abstrae la recepción tipo cola: long-poll acotado y ack
// explícito por mensaje. Un mensaje sin ack vuelve a entregarse según las
// reglas de retención del broker.
type MessageSource interface {
	Receive(ctx context.Context, max int) ([]Message, error)
	Ack(ctx context.Context, msg Message) error
}
