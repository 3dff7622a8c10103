package dto

// PageRequest paginación, búsqueda y orden para listados.
type PageRequest struct {
	Limit    int    `query:"limit" validate:"min=1,max=100"`
	Offset   int    `query:"offset" validate:"min=0"`
	Search   string `query:"search"`
	Ordering string `query:"ordering"`
}

// DefaultPage aplica valores por defecto si Limit/Offset son cero.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
// HasMore indica que hay elementos después de esta página (siguiente offset = Offset+Limit).
type PageResponse struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// FetchLimit pide un elemento de más para saber si existe otra página.
func (p PageRequest) FetchLimit() int {
	return p.Limit + 1
}

// PageOf recorta list (obtenida con FetchLimit) a Limit y arma los metadatos.
func PageOf[T any](p PageRequest, list []T) ([]T, PageResponse) {
	meta := PageResponse{Limit: p.Limit, Offset: p.Offset}
	if len(list) > p.Limit {
		meta.HasMore = true
		list = list[:p.Limit]
	}
	return list, meta
}

// ErrorResponse cuerpo de error HTTP.
// Field y Available solo se informan en errores de validación; Available cuando falta stock.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Available *int   `json:"available,omitempty"`
}
