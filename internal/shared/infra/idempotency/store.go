package idempotency

import "context"

// Store es el libro mayor de eventos ya procesados bajo entrega
// at-least-once. IsProcessed es solo una optimización: la corrección
// depende de la restricción de unicidad sobre event_id en el storage,
// no de la comprobación previa.
type Store interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed inserta el marcador. Un duplicado (violación de
	// unicidad) NO es un error: otra instancia ya lo marcó.
	MarkProcessed(ctx context.Context, eventID string) error
}
