package pagination

import "strconv"

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Params son los parámetros de paginado de los listados HTTP. Valores
// ausentes o inválidos caen al valor por defecto en vez de fallar.
type Params struct {
	Limit  int
	Offset int
}

// FromQuery parsea limit y offset de query params. Limit se acota a
// [1, MaxLimit]; offset negativo se trata como 0.
func FromQuery(limitStr, offsetStr string) Params {
	p := Params{Limit: DefaultLimit}

	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
			p.Limit = v
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil && v > 0 {
			p.Offset = v
		}
	}

	return p
}

// Page devuelve la ventana [offset, offset+limit) de la colección. Fuera
// de rango devuelve una página vacía, nunca un error.
func Page[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}
